package battle

import (
	"github.com/google/uuid"

	"github.com/zurustar/beatbrawl/pkg/judge"
)

// Battle が使うアクター名
const (
	PlayerName   = "player"
	OpponentName = "opponent"
)

// Actor は戦闘者とそのジャッジ
type Actor struct {
	ID    uuid.UUID
	Name  string
	Judge *judge.Judge
}

func newActor(name string, opts ...judge.Option) *Actor {
	return &Actor{
		ID:    uuid.New(),
		Name:  name,
		Judge: judge.New(name, opts...),
	}
}
