package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CommandFields 提供 CLI 子命令与缓存目标字段，供命令日志复用。
func CommandFields(command string, key []string, directory, algorithm string, enabled bool) logrus.Fields {
	return logrus.Fields{
		"action":    "cli_" + command,
		"key":       key,
		"directory": directory,
		"algorithm": algorithm,
		"enabled":   enabled,
	}
}
