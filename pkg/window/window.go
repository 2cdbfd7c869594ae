package window

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/beatbrawl/pkg/battle"
)

// 画面サイズ
const (
	ScreenWidth  = 640
	ScreenHeight = 360
)

// フィードバック表示時間
const feedbackDuration = 1500 * time.Millisecond

var (
	backgroundColor = color.RGBA{0x10, 0x10, 0x20, 0xFF}
	barFrameColor   = color.Black
	playerBarColor  = color.RGBA{0x00, 0xFF, 0x00, 0xFF}
	enemyBarColor   = color.RGBA{0xFF, 0x00, 0x00, 0xFF}
	textColor       = color.White
	accentTextColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	defaultFace     = text.NewGoXFace(basicfont.Face7x13)
)

// Controller はウィンドウとヘッドレスの両方が操作するバトル
type Controller interface {
	Toggle()
	PressPlayer()
	Status() battle.Status
}

// feedback はアクターごとの直近の判定
type feedback struct {
	text string
	at   time.Time
}

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	ctrl      Controller
	timeout   time.Duration
	startTime time.Time
	now       func() time.Time
	done      <-chan struct{}

	mu       sync.Mutex
	feedback map[string]feedback
}

// NewGame Gameを作成
func NewGame(ctrl Controller, timeout time.Duration) *Game {
	return &Game{
		ctrl:      ctrl,
		timeout:   timeout,
		startTime: time.Now(),
		now:       time.Now,
		feedback:  make(map[string]feedback),
	}
}

// StopOn done が閉じられたらゲームループを終了する
func (g *Game) StopOn(done <-chan struct{}) {
	g.done = done
}

// HandleEvent バトルの遷移を受け取る（battle.Battle.OnEvent に登録する）
func (g *Game) HandleEvent(ev battle.Event) {
	msg := FormatEvent(ev)
	if msg == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.feedback[ev.Actor] = feedback{text: msg, at: g.now()}
}

// feedbackText 表示期間内の判定を返す
func (g *Game) feedbackText(actor string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.feedback[actor]
	if !ok || g.now().Sub(f.at) > feedbackDuration {
		return ""
	}
	return f.text
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	// タイムアウトチェック
	if g.timeout > 0 && time.Since(g.startTime) >= g.timeout {
		return ebiten.Termination
	}
	select {
	case <-g.done:
		return ebiten.Termination
	default:
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.ctrl.Toggle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyJ) {
		g.ctrl.PressPlayer()
	}
	return nil
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	st := g.ctrl.Status()

	// メーター（左が相手、右がプレイヤー）
	frame := image.Rect(20, 55, ScreenWidth-20, 105)
	fillRect(screen, frame, barFrameColor)
	enemyW, playerW := MeterWidths(st.Meter, frame.Dx())
	fillRect(screen, image.Rect(frame.Min.X, frame.Min.Y, frame.Min.X+enemyW, frame.Max.Y), enemyBarColor)
	fillRect(screen, image.Rect(frame.Max.X-playerW, frame.Min.Y, frame.Max.X, frame.Max.Y), playerBarColor)

	drawText(screen, "OPPONENT", 20, 30, textColor)
	drawText(screen, "PLAYER", ScreenWidth-20-6*7, 30, textColor)

	drawText(screen, fmt.Sprintf("state: %s", st.OpponentState), 20, 140, textColor)
	drawText(screen, fmt.Sprintf("state: %s", st.PlayerState), ScreenWidth/2+20, 140, textColor)
	if msg := g.feedbackText(battle.OpponentName); msg != "" {
		drawText(screen, msg, 20, 170, accentTextColor)
	}
	if msg := g.feedbackText(battle.PlayerName); msg != "" {
		drawText(screen, msg, ScreenWidth/2+20, 170, accentTextColor)
	}

	drawText(screen, FormatStatus(st), 20, ScreenHeight-60, textColor)
	drawText(screen, "SPACE: play/pause   J: charge/release   ESC: exit", 20, ScreenHeight-30, textColor)
}

// Layout 画面サイズを返す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

func fillRect(screen *ebiten.Image, r image.Rectangle, c color.Color) {
	if r.Empty() {
		return
	}
	screen.SubImage(r).(*ebiten.Image).Fill(c)
}

func drawText(screen *ebiten.Image, s string, x, y float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, s, defaultFace, op)
}

// MeterWidths メーターの値から相手側とプレイヤー側の幅を計算
func MeterWidths(value float64, total int) (enemy, player int) {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	player = int(value*float64(total) + 0.5)
	return total - player, player
}

// Run GUIモードでウィンドウを実行
func Run(game *Game) error {
	ebiten.SetWindowSize(ScreenWidth*2, ScreenHeight*2)
	ebiten.SetWindowTitle("beatbrawl")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return nil
}
