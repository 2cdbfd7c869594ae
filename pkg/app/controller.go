package app

import (
	"sync"

	"github.com/zurustar/beatbrawl/pkg/battle"
	"github.com/zurustar/beatbrawl/pkg/score"
)

// audioOutput は controller が追従させる音声（audio.Player が実装）
type audioOutput interface {
	Load(s *score.Score) error
	Sync(running bool, tick int)
	IsPlaying() bool
}

// controller はフロントエンドと制御サーバーが操作する窓口
// 再生の切り替えに音声を追従させる
type controller struct {
	// mu は再生切り替えと音声の読み込みを直列にする
	mu     sync.Mutex
	battle *battle.Battle
	audio  audioOutput // nil なら音なし
}

func (c *controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.battle.Toggle()
	if c.audio != nil {
		clk := c.battle.Clock()
		c.audio.Sync(clk.Running(), clk.Tick())
	}
}

// loadAudio スコアを音声に読み込む
// 読み込み前に再生が始まっていたら、いまの位置から鳴らす
func (c *controller) loadAudio(s *score.Score) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.audio == nil {
		return nil
	}
	if err := c.audio.Load(s); err != nil {
		return err
	}
	if clk := c.battle.Clock(); clk.Running() {
		c.audio.Sync(true, clk.Tick())
	}
	return nil
}

func (c *controller) PressPlayer() {
	c.battle.PressPlayer()
}

func (c *controller) Status() battle.Status {
	st := c.battle.Status()
	if c.audio != nil {
		st.Audio = c.audio.IsPlaying()
	}
	return st
}
