// Package uistate renders a match into the display state pushed to local
// clients.
package uistate

import (
	"ctchen222/nogo-server/internal/game"
	"ctchen222/nogo-server/internal/match"
	"ctchen222/nogo-server/internal/player"
	"ctchen222/nogo-server/pkg/proto"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type DynamicStatistics struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type PlayerData struct {
	Name      string      `json:"name"`
	Avatar    string      `json:"avatar"`
	Type      player.Kind `json:"type"`
	ChessType int         `json:"chess_type"`
}

type GameMetadata struct {
	Size           int        `json:"size"`
	PlayerOpposing PlayerData `json:"player_opposing"`
	PlayerOur      PlayerData `json:"player_our"`
	TurnTimeout    int        `json:"turn_timeout"`
}

type Game struct {
	Chessboard         [game.Size][game.Size]int `json:"chessboard"`
	IsOurPlayerPlaying bool                      `json:"is_our_player_playing"`
	GameMetadata       GameMetadata              `json:"gamemetadata"`
	Statistics         []DynamicStatistics       `json:"statistics"`
}

// UiState is the display state. Game is only present while a match is on.
type UiState struct {
	IsGaming bool  `json:"is_gaming"`
	Game     *Game `json:"game"`
}

func playerData(m *match.Match, role game.Role) PlayerData {
	p, err := m.Player(role, nil)
	if err != nil {
		return PlayerData{ChessType: int(role)}
	}
	return PlayerData{Name: p.Name, Type: p.Kind, ChessType: int(p.Role)}
}

// New builds the display state of m as seen by perspective. It only reads m.
func New(m *match.Match, perspective game.Role, turnTimeout time.Duration) UiState {
	state := UiState{IsGaming: m.Status() == match.OnGoing}
	if !state.IsGaming {
		return state
	}

	current := m.Current()
	state.Game = &Game{
		Chessboard:         current.Board.Rows(),
		IsOurPlayerPlaying: current.Turn == perspective,
		GameMetadata: GameMetadata{
			Size:           game.Size,
			PlayerOpposing: playerData(m, perspective.Opponent()),
			PlayerOur:      playerData(m, perspective),
			TurnTimeout:    int(turnTimeout / time.Second),
		},
		Statistics: []DynamicStatistics{
			{ID: "round", Name: "Round", Value: strconv.Itoa(m.Round())},
			{ID: "last_move", Name: "Last move", Value: current.LastMove.String()},
		},
	}
	return state
}

// Message wraps the display state into an UPDATE_UI_STATE message stamped
// with now in unix seconds.
func Message(m *match.Match, perspective game.Role, turnTimeout time.Duration, now time.Time) (proto.Message, error) {
	data, err := json.Marshal(New(m, perspective, turnTimeout))
	if err != nil {
		return proto.Message{}, fmt.Errorf("failed to marshal ui state: %w", err)
	}
	return proto.NewMessage(proto.UpdateUIState, strconv.FormatInt(now.Unix(), 10), string(data)), nil
}
