package effectmodel

import "errors"

type EffectEnum string

const (
	EffectLog    EffectEnum = "managed_ive_go_effect_enum_log"
	EffectDefect EffectEnum = "managed_ive_go_effect_enum_defect"
)

var ErrNoEffectHandler = errors.New("no effect handler registered for this effect")

type EffectScopeConfig struct {
	BufferSize int // default: 1
	NumWorkers int // default: 1, >1 partitions payloads by PartitionKey()
}

func NewEffectScopeConfig(bufferSize int, numWorkers int) EffectScopeConfig {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return EffectScopeConfig{
		BufferSize: bufferSize,
		NumWorkers: numWorkers,
	}
}

type Partitionable interface {
	PartitionKey() string
}
