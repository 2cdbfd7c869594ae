package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/zurustar/beatbrawl/pkg/logger"
)

// ErrInvalidConfig は設定値の検証エラー
var ErrInvalidConfig = errors.New("invalid configuration")

// デフォルト値
const (
	DefaultLogLevel       = "info"
	DefaultSubdivisions   = 5
	DefaultMaxDamage      = 0.1
	DefaultBotBeat        = 1
	DefaultBotLateness    = 1
	DefaultAnimationBeats = 1
)

// Config はコマンドライン引数・環境変数・設定ファイルから解析された設定を保持する
type Config struct {
	ScorePath      string        // MIDIファイルのパス（空なら内蔵の無音スコア）
	SoundFont      string        // SoundFontのパス（空なら音なし）
	HitSound       string        // 攻撃成功時に鳴らすWAVファイル（空なら鳴らさない）
	ConfigFile     string        // YAML設定ファイル
	ControlAddr    string        // 制御用HTTPサーバーのアドレス（空なら起動しない）
	Timeout        time.Duration // タイムアウト時間（0は無制限）
	LogLevel       string        // ログレベル（debug, info, warn, error）
	Headless       bool          // ヘッドレスモード
	Mute           bool          // 音声をミュート
	ShowHelp       bool          // ヘルプ表示フラグ
	Subdivisions   int           // 1拍あたりのサンプル数
	MaxDamage      float64       // 完璧なリリースのダメージ
	BotBeat        int           // 相手ボットがチャージする拍（0でボットなし）
	BotLateness    int           // ボットのリリース遅れ（サンプル数）
	AnimationBeats int           // 攻撃アニメーションの拍数
}

// envConfig は環境変数。未設定の項目は nil のまま
type envConfig struct {
	LogLevel     *string  `env:"LOG_LEVEL"`
	Headless     *bool    `env:"HEADLESS"`
	Timeout      *int     `env:"TIMEOUT"`
	SoundFont    *string  `env:"SOUNDFONT"`
	HitSound     *string  `env:"HIT_SOUND"`
	Subdivisions *int     `env:"SUBDIVISIONS"`
	MaxDamage    *float64 `env:"MAX_DAMAGE"`
	ControlAddr  *string  `env:"CONTROL_ADDR"`
	ConfigFile   *string  `env:"CONFIG"`
}

// defaultConfig デフォルト設定
func defaultConfig() *Config {
	return &Config{
		LogLevel:       DefaultLogLevel,
		Subdivisions:   DefaultSubdivisions,
		MaxDamage:      DefaultMaxDamage,
		BotBeat:        DefaultBotBeat,
		BotLateness:    DefaultBotLateness,
		AnimationBeats: DefaultAnimationBeats,
	}
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// 優先順位: コマンドラインフラグ > 環境変数 > 設定ファイル > デフォルト
func ParseArgs(args []string) (*Config, error) {
	return ParseArgsWithEnv(args, nil)
}

// ParseArgsWithEnv 環境変数を明示して解析する（nilならプロセスの環境変数）
func ParseArgsWithEnv(args []string, environ map[string]string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("beatbrawl", flag.ContinueOnError)
	fs.Usage = func() {}

	var (
		flagConfig     = defaultConfig()
		timeoutSec     int
		configFilePath string
	)
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&flagConfig.LogLevel, "log-level", DefaultLogLevel, "ログレベル（debug, info, warn, error）")
	fs.StringVar(&flagConfig.LogLevel, "l", DefaultLogLevel, "ログレベル（短縮形）")
	fs.StringVar(&flagConfig.SoundFont, "soundfont", "", "SoundFontファイル")
	fs.StringVar(&flagConfig.SoundFont, "s", "", "SoundFontファイル（短縮形）")
	fs.StringVar(&flagConfig.HitSound, "hit-sound", "", "攻撃成功時に鳴らすWAVファイル")
	fs.StringVar(&configFilePath, "config", "", "YAML設定ファイル")
	fs.StringVar(&configFilePath, "c", "", "YAML設定ファイル（短縮形）")
	fs.StringVar(&flagConfig.ControlAddr, "control-addr", "", "制御用HTTPサーバーのアドレス")
	fs.IntVar(&flagConfig.Subdivisions, "subdivisions", DefaultSubdivisions, "1拍あたりのサンプル数")
	fs.Float64Var(&flagConfig.MaxDamage, "max-damage", DefaultMaxDamage, "完璧なリリースのダメージ")
	fs.IntVar(&flagConfig.BotBeat, "bot-beat", DefaultBotBeat, "ボットがチャージする拍（0でボットなし）")
	fs.IntVar(&flagConfig.BotLateness, "bot-lateness", DefaultBotLateness, "ボットのリリース遅れ（サンプル数）")
	fs.IntVar(&flagConfig.AnimationBeats, "animation-beats", DefaultAnimationBeats, "攻撃アニメーションの拍数")
	fs.BoolVar(&flagConfig.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&flagConfig.Mute, "mute", false, "音声をミュート")
	fs.BoolVar(&flagConfig.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&flagConfig.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	isSet := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}

	// 環境変数
	var e envConfig
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}

	config := defaultConfig()

	// 1. 設定ファイル
	if !isSet("config", "c") && e.ConfigFile != nil {
		configFilePath = *e.ConfigFile
	}
	if configFilePath != "" {
		fc, err := LoadFile(configFilePath)
		if err != nil {
			return nil, err
		}
		fc.apply(config)
		config.ConfigFile = configFilePath
	}

	// 2. 環境変数
	if e.LogLevel != nil {
		config.LogLevel = strings.ToLower(*e.LogLevel)
	}
	if e.Headless != nil {
		config.Headless = *e.Headless
	}
	if e.Timeout != nil {
		config.Timeout = time.Duration(*e.Timeout) * time.Second
	}
	if e.SoundFont != nil {
		config.SoundFont = *e.SoundFont
	}
	if e.HitSound != nil {
		config.HitSound = *e.HitSound
	}
	if e.Subdivisions != nil {
		config.Subdivisions = *e.Subdivisions
	}
	if e.MaxDamage != nil {
		config.MaxDamage = *e.MaxDamage
	}
	if e.ControlAddr != nil {
		config.ControlAddr = *e.ControlAddr
	}

	// 3. コマンドラインフラグ（明示されたものだけ）
	if isSet("timeout", "t") {
		config.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if isSet("log-level", "l") {
		config.LogLevel = strings.ToLower(flagConfig.LogLevel)
	}
	if isSet("soundfont", "s") {
		config.SoundFont = flagConfig.SoundFont
	}
	if isSet("hit-sound") {
		config.HitSound = flagConfig.HitSound
	}
	if isSet("control-addr") {
		config.ControlAddr = flagConfig.ControlAddr
	}
	if isSet("subdivisions") {
		config.Subdivisions = flagConfig.Subdivisions
	}
	if isSet("max-damage") {
		config.MaxDamage = flagConfig.MaxDamage
	}
	if isSet("bot-beat") {
		config.BotBeat = flagConfig.BotBeat
	}
	if isSet("bot-lateness") {
		config.BotLateness = flagConfig.BotLateness
	}
	if isSet("animation-beats") {
		config.AnimationBeats = flagConfig.AnimationBeats
	}
	if isSet("headless") {
		config.Headless = flagConfig.Headless
	}
	if isSet("mute") {
		config.Mute = flagConfig.Mute
	}
	config.ShowHelp = flagConfig.ShowHelp

	// 位置引数（MIDIファイルのパス）
	if fs.NArg() > 0 {
		config.ScorePath = fs.Arg(0)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate 設定値を検証
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be non-negative, got %v", ErrInvalidConfig, c.Timeout)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v (must be debug, info, warn, or error)", ErrInvalidConfig, err)
	}
	if c.Subdivisions < 1 {
		return fmt.Errorf("%w: subdivisions must be at least 1, got %d", ErrInvalidConfig, c.Subdivisions)
	}
	if c.MaxDamage <= 0 || c.MaxDamage > 1 {
		return fmt.Errorf("%w: max damage must be in (0, 1], got %v", ErrInvalidConfig, c.MaxDamage)
	}
	if c.BotBeat < 0 || c.BotBeat > 4 {
		return fmt.Errorf("%w: bot beat must be 0 to 4, got %d", ErrInvalidConfig, c.BotBeat)
	}
	if c.BotLateness < 0 {
		return fmt.Errorf("%w: bot lateness must be non-negative, got %d", ErrInvalidConfig, c.BotLateness)
	}
	if c.AnimationBeats < 0 {
		return fmt.Errorf("%w: animation beats must be non-negative, got %d", ErrInvalidConfig, c.AnimationBeats)
	}
	return nil
}

// boolFlags 値を取らないフラグ
var boolFlags = map[string]bool{
	"-h": true, "--h": true, "-help": true, "--help": true,
	"-headless": true, "--headless": true,
	"-mute": true, "--mute": true,
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t 5 のような場合は次の引数も値として取る（-max-damage=0.2 の形は除く）
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}
			if i+1 < len(args) && !isFlagLike(args[i+1]) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// isFlagLike 負の数は値として扱う
func isFlagLike(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	return s[1] < '0' || s[1] > '9'
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `beatbrawl - rhythm combat prototype

Usage:
  beatbrawl [options] [score.mid]

Arguments:
  score.mid     テンポとリズムの元になるMIDIファイル（省略時は120BPMの無音スコア）

Options:
  -s, --soundfont <file>      演奏に使うSoundFont（省略時は音なし）
  --hit-sound <file>          攻撃成功時に鳴らすWAVファイル
  -c, --config <file>         YAML設定ファイル
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  ヘッドレスモード（GUIなし、標準入力で操作）
  --mute                      音声をミュート
  --control-addr <addr>       制御用HTTPサーバーを起動（例: 127.0.0.1:8088）
  --subdivisions <n>          1拍あたりのサンプル数（デフォルト: 5）
  --max-damage <ratio>        完璧なリリースのダメージ（デフォルト: 0.1）
  --bot-beat <1-4>            相手ボットがチャージを始める拍（0でボットなし、デフォルト: 1）
  --bot-lateness <n>          ボットのリリース遅れ（サンプル数、デフォルト: 1）
  --animation-beats <n>       攻撃アニメーションの拍数（デフォルト: 1）
  -h, --help                  このヘルプを表示

Controls:
  ウィンドウ      Space: 再生/一時停止  J: 攻撃（チャージ/リリース）  Esc: 終了
  ヘッドレス      t: 再生/一時停止  p: 攻撃  s: 状態表示  q: 終了

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  SOUNDFONT=<file>            SoundFont
  HIT_SOUND=<file>            攻撃成功時に鳴らすWAVファイル
  SUBDIVISIONS=<n>            1拍あたりのサンプル数
  MAX_DAMAGE=<ratio>          完璧なリリースのダメージ
  CONTROL_ADDR=<addr>         制御用HTTPサーバーのアドレス
  CONFIG=<file>               YAML設定ファイル

Examples:
  beatbrawl song.mid -s GeneralUser-GS.sf2
  beatbrawl --headless --timeout 30
  beatbrawl --bot-beat 3 --max-damage 0.2 song.mid
  HEADLESS=1 LOG_LEVEL=debug beatbrawl song.mid
`)
}
