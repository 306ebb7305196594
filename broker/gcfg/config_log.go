package gcfg

import (
	"github.com/lybxkl/simq/common/log"
)

type Log struct {
	Level string `toml:"level" validate:"default=info"`
}

func (l Log) GetLevel() log.Level {
	return log.ToLevel(l.Level)
}
