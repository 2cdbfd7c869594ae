package cli

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zurustar/beatbrawl/pkg/fileutil"
)

// FileConfig はYAML設定ファイルの内容。書かれていない項目は nil
type FileConfig struct {
	Score        *string `yaml:"score"`
	SoundFont    *string `yaml:"soundfont"`
	HitSound     *string `yaml:"hit_sound"`
	LogLevel     *string `yaml:"log_level"`
	Headless     *bool   `yaml:"headless"`
	Mute         *bool   `yaml:"mute"`
	Timeout      *int    `yaml:"timeout"`
	Subdivisions *int    `yaml:"subdivisions"`
	ControlAddr  *string `yaml:"control_addr"`
	Battle       struct {
		MaxDamage      *float64 `yaml:"max_damage"`
		BotBeat        *int     `yaml:"bot_beat"`
		BotLateness    *int     `yaml:"bot_lateness"`
		AnimationBeats *int     `yaml:"animation_beats"`
	} `yaml:"battle"`
}

// LoadFile YAML設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	fsys, name := fileutil.SplitPath(path)
	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: config file %s: %v", ErrInvalidConfig, path, err)
	}
	return ParseFile(data)
}

// ParseFile YAMLを解析
func ParseFile(data []byte) (*FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: config file format: %v", ErrInvalidConfig, err)
	}
	return &fc, nil
}

// apply 書かれている項目だけ上書き
func (fc *FileConfig) apply(c *Config) {
	if fc.Score != nil {
		c.ScorePath = *fc.Score
	}
	if fc.SoundFont != nil {
		c.SoundFont = *fc.SoundFont
	}
	if fc.HitSound != nil {
		c.HitSound = *fc.HitSound
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.Headless != nil {
		c.Headless = *fc.Headless
	}
	if fc.Mute != nil {
		c.Mute = *fc.Mute
	}
	if fc.Timeout != nil {
		c.Timeout = time.Duration(*fc.Timeout) * time.Second
	}
	if fc.Subdivisions != nil {
		c.Subdivisions = *fc.Subdivisions
	}
	if fc.ControlAddr != nil {
		c.ControlAddr = *fc.ControlAddr
	}
	if fc.Battle.MaxDamage != nil {
		c.MaxDamage = *fc.Battle.MaxDamage
	}
	if fc.Battle.BotBeat != nil {
		c.BotBeat = *fc.Battle.BotBeat
	}
	if fc.Battle.BotLateness != nil {
		c.BotLateness = *fc.Battle.BotLateness
	}
	if fc.Battle.AnimationBeats != nil {
		c.AnimationBeats = *fc.Battle.AnimationBeats
	}
}
