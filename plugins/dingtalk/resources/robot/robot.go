// Package robot sends group robot messages and enterprise DING reminders.
package robot

import (
	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
)

func Bundle() operation.Bundle {
	return operation.MustBundle("robot", "机器人", dingRecall, dingSend, send)
}
