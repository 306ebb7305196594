package gcfg

type Broker struct {
	MqttAddr    string `toml:"mqttAddr" validate:"default=tcp://:1883"`
	WsAddr      string `toml:"wsAddr"` // 为空不启用websocket代理
	WsPath      string `toml:"wsPath" validate:"default=/mqtt"`
	WssAddr     string `toml:"wssAddr"`
	WssCertPath string `toml:"wssCertPath"`
	WssKeyPath  string `toml:"wssKeyPath"`

	ServerTaskPoolSize int `toml:"server_task_pool_size" validate:"default=2000"`
}
