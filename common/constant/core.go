package constant

const (
	// SEP is the topic level separator
	SEP = "/"

	// SYS is the starting character of the system level topics
	SYS = "$"
)

// 系统主题（统计信息定时发布到这些主题上）
const (
	SysTopicPrefix  = SYS + "sys" + SEP + "broker"
	SysTopicUptime  = SysTopicPrefix + "/uptime"
	SysTopicClients = SysTopicPrefix + "/clients/connected"
	SysTopicRecv    = SysTopicPrefix + "/messages/received"
	SysTopicSent    = SysTopicPrefix + "/messages/sent"
	SysTopicDropped = SysTopicPrefix + "/messages/dropped"
)
