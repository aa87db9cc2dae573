package client

// ===== 客户端网络配置 =====
const (
	// 默认服务器地址
	DefaultServerAddr = "127.0.0.1:7777"

	// 本地监听地址：临时端口
	DefaultLocalAddr = ":0"
)
