package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/term"

	"github.com/zurustar/beatbrawl/pkg/audio"
	"github.com/zurustar/beatbrawl/pkg/battle"
	"github.com/zurustar/beatbrawl/pkg/cli"
	"github.com/zurustar/beatbrawl/pkg/clock"
	"github.com/zurustar/beatbrawl/pkg/control"
	"github.com/zurustar/beatbrawl/pkg/fileutil"
	"github.com/zurustar/beatbrawl/pkg/judge"
	"github.com/zurustar/beatbrawl/pkg/logger"
	"github.com/zurustar/beatbrawl/pkg/score"
	"github.com/zurustar/beatbrawl/pkg/window"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	embedFS fs.FS

	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	environ map[string]string

	loader *score.Loader
	clock  *clock.TempoClock
	battle *battle.Battle
	player *audio.Player
	effect *audio.Effect
	ctrl   *controller
}

// Option はApplicationの設定
type Option func(*Application)

// WithIO 標準入出力を差し替える（テスト用）
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(app *Application) {
		app.stdin = stdin
		app.stdout = stdout
		app.stderr = stderr
	}
}

// WithEnv 環境変数を差し替える（テスト用）
func WithEnv(environ map[string]string) Option {
	return func(app *Application) { app.environ = environ }
}

// New Applicationを作成
func New(embedFS fs.FS, opts ...Option) *Application {
	app := &Application{
		embedFS: embedFS,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started", "headless", app.config.Headless, "score", app.config.ScorePath)

	// タイムアウトとシグナルで終了するコンテキスト
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	if app.config.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, app.config.Timeout)
		defer cancelTimeout()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. スコアの読み込み開始（読み込み完了までクロックは動かない）
	app.startLoader(ctx, cancel)

	// 4. クロックとバトルの構築
	app.buildBattle()
	defer app.shutdown()

	// 5. 音声（SoundFontがなければ音なし）
	app.setupAudio(ctx)

	// 6. 制御サーバー
	if app.config.ControlAddr != "" {
		srv := control.NewServer(app.ctrl, logger.Component("control"))
		if _, err := srv.Start(ctx, app.config.ControlAddr); err != nil {
			return fmt.Errorf("failed to start control server: %w", err)
		}
	}

	// 7. フロントエンド
	var err error
	if app.config.Headless {
		err = app.runHeadless(ctx)
	} else {
		err = app.runWindow(ctx)
	}
	if err != nil {
		return err
	}

	// スコアの読み込み失敗で終了した場合
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}

	app.log.Info("Application finished", "meter", app.battle.Meter().Value())
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgsWithEnv(args, app.environ)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化（ログは標準エラーへ）
func (app *Application) initLogger() error {
	if err := logger.InitLoggerWithWriter(app.config.LogLevel, app.stderr); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// startLoader スコアの読み込みを開始する
// 失敗したらアプリケーション全体を止める
func (app *Application) startLoader(ctx context.Context, cancel context.CancelCauseFunc) {
	if app.config.ScorePath == "" {
		s, err := score.New(score.DefaultTempoBPM, score.DefaultTicksPerQuarterNote)
		if err != nil {
			cancel(err)
			return
		}
		app.log.Info("No score given, using a silent built-in score",
			"tempo_bpm", s.TempoBPM, "ppq", s.TicksPerQuarterNote)
		app.loader = score.Preloaded(s)
		return
	}

	fsys, name := fileutil.SplitPath(app.config.ScorePath)
	app.loader = score.NewLoader(fsys, name, logger.Component("score"))
	app.loader.Start(ctx)

	go func() {
		if _, err := app.loader.Wait(ctx); err != nil && ctx.Err() == nil {
			cancel(fmt.Errorf("failed to load score: %w", err))
		}
	}()
}

// buildBattle クロック・ジャッジ・メーターを構築
func (app *Application) buildBattle() {
	app.clock = clock.New(app.loader,
		clock.WithSubdivisions(app.config.Subdivisions),
		clock.WithLogger(logger.Component("clock")))

	app.battle = battle.New(app.clock, battle.Config{
		MaxDamage:      app.config.MaxDamage,
		BotBeat:        app.config.BotBeat,
		BotLateness:    app.config.BotLateness,
		AnimationBeats: app.config.AnimationBeats,
	}, logger.Component("battle"))
	app.battle.Start()
	app.ctrl = &controller{battle: app.battle}
}

// setupAudio SoundFontを探して音声プレイヤーを用意する
// ヘッドレスモードでは音声を出さない
func (app *Application) setupAudio(ctx context.Context) {
	if app.config.Headless {
		app.log.Info("Headless mode: audio disabled")
		return
	}

	app.setupHitSound()

	loc := findSoundFont(app.config.SoundFont, app.embedFS, filepath.Dir(app.config.ScorePath))
	if loc == nil {
		app.log.Info("No SoundFont found, audio disabled", "searched", DefaultSoundFontName)
		return
	}

	sf, err := audio.LoadSoundFont(loc.FileSystem, loc.Path)
	if err != nil {
		app.log.Warn("SoundFont could not be loaded, audio disabled", "path", loc.Path, "error", err)
		return
	}
	player, err := audio.NewPlayer(sf, nil, logger.Component("audio"))
	if err != nil {
		app.log.Warn("Audio player could not be created, audio disabled", "error", err)
		return
	}
	player.SetMuted(app.config.Mute)
	app.player = player
	app.ctrl.audio = player
	app.log.Info("Audio enabled", "soundfont", loc.Path, "embedded", loc.IsEmbedded)

	// スコアが揃ったら読み込む
	go func() {
		s, err := app.loader.Wait(ctx)
		if err != nil {
			return
		}
		if err := app.ctrl.loadAudio(s); err != nil {
			app.log.Warn("Score cannot be played, audio disabled", "error", err)
		}
	}()
}

// setupHitSound 攻撃成功時の効果音を用意する（失敗しても続行）
func (app *Application) setupHitSound() {
	if app.config.HitSound == "" {
		return
	}
	effect, err := audio.LoadEffect(nil, app.config.HitSound, nil, logger.Component("audio"))
	if err != nil {
		app.log.Warn("Hit sound could not be loaded", "path", app.config.HitSound, "error", err)
		return
	}
	effect.SetMuted(app.config.Mute)
	app.effect = effect
	app.battle.OnEvent(func(ev battle.Event) {
		if ev.Transition.State == judge.Attacking && ev.Transition.Outcome == judge.OutcomeSuccess && ev.Transition.Damage > 0 {
			effect.Play()
		}
	})
}

// runHeadless 標準入力で操作する
func (app *Application) runHeadless(ctx context.Context) error {
	out := window.NewSyncWriter(app.stdout)
	app.battle.OnEvent(func(ev battle.Event) {
		if msg := window.FormatEvent(ev); msg != "" {
			fmt.Fprintln(out, msg)
		}
	})

	if f, ok := app.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		app.log.Info("Headless mode: reading keys from terminal")
		return window.RunTerminal(ctx, app.ctrl, out)
	}
	app.log.Info("Headless mode: reading commands from input")
	return window.RunHeadless(ctx, app.ctrl, app.stdin, out)
}

// runWindow ウィンドウを表示する
func (app *Application) runWindow(ctx context.Context) error {
	game := window.NewGame(app.ctrl, app.config.Timeout)
	game.StopOn(ctx.Done())
	app.battle.OnEvent(game.HandleEvent)
	return window.Run(game)
}

// shutdown クロックを止めて資源を解放
func (app *Application) shutdown() {
	if app.clock != nil && app.clock.Running() {
		app.clock.Toggle()
	}
	if app.battle != nil {
		app.battle.Close()
	}
	if app.player != nil {
		app.player.Close()
	}
	if app.effect != nil {
		app.effect.Close()
	}
}
