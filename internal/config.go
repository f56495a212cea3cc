package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

type BufferConfig struct {
	Pool struct {
		PageFile  string `mapstructure:"page_file"`
		NumFrames int    `mapstructure:"num_frames"`
		Strategy  string `mapstructure:"strategy"`
		LRUK      int    `mapstructure:"lru_k"`
		Debug     bool   `mapstructure:"debug"`
	} `mapstructure:"pool"`
}

func LoadConfig(path string) (*BufferConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("pool.page_file", "data/pages.bin")
	v.SetDefault("pool.num_frames", 16)
	v.SetDefault("pool.strategy", "lru")
	v.SetDefault("pool.lru_k", 2)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg BufferConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
