package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case Match:
		o.printMatch(v)
	case []PlayerRef:
		o.printPlayers(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      int       `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult combines account and token pair
type AuthResult struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// PlayerRef response type
type PlayerRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RosterEntry response type
type RosterEntry struct {
	Player PlayerRef `json:"player"`
	Score  int       `json:"score"`
}

// RoundEntry response type. Move is empty for hidden opponent moves.
type RoundEntry struct {
	Player PlayerRef `json:"player"`
	Move   string    `json:"move"`
}

// HistoryRound response type
type HistoryRound struct {
	Winners     []PlayerRef  `json:"winners"`
	PlayerMoves []RoundEntry `json:"playerMoves"`
}

// Match response type (matches the gateway wire shape)
type Match struct {
	ID             string         `json:"matchId"`
	Creator        PlayerRef      `json:"creator"`
	State          string         `json:"state"`
	Players        []RosterEntry  `json:"players"`
	CurrentRound   []RoundEntry   `json:"currentRound"`
	HistoryRounds  []HistoryRound `json:"historyRounds"`
	Blacklist      []string       `json:"blacklist"`
	InMatchPlayers []string       `json:"inMatchPlayers"`
	Revealed       bool           `json:"revealed"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u User) {
	fmt.Printf("User: %s (%s)\n", u.Username, u.ID)
	if u.AvatarURL != "" {
		fmt.Printf("Avatar: %s\n", u.AvatarURL)
	}
	fmt.Printf("Created: %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Printf("Access Token: %s\n", a.AccessToken)
}

func (o *Output) printMatch(m Match) {
	fmt.Printf("Match: %s\n", m.ID)
	fmt.Printf("State: %s\n", m.State)
	fmt.Printf("Creator: %s (%s)\n", m.Creator.Username, m.Creator.ID)

	online := make(map[string]bool, len(m.InMatchPlayers))
	for _, id := range m.InMatchPlayers {
		online[id] = true
	}

	fmt.Printf("Players (%d):\n", len(m.Players))
	for _, entry := range m.Players {
		status := ""
		if online[entry.Player.ID] {
			status = " [online]"
		}
		fmt.Printf("  - %s: %d points%s\n", entry.Player.Username, entry.Score, status)
	}

	if len(m.CurrentRound) > 0 {
		fmt.Println("Current Round:")
		for _, entry := range m.CurrentRound {
			move := entry.Move
			if move == "" {
				move = "(hidden)"
			}
			fmt.Printf("  - %s: %s\n", entry.Player.Username, move)
		}
	}

	if len(m.HistoryRounds) > 0 {
		fmt.Printf("Rounds Played: %d\n", len(m.HistoryRounds))
		last := m.HistoryRounds[len(m.HistoryRounds)-1]
		if len(last.Winners) == 0 {
			fmt.Println("Last Round: tie")
		} else {
			names := make([]string, 0, len(last.Winners))
			for _, w := range last.Winners {
				names = append(names, w.Username)
			}
			fmt.Printf("Last Round Winners: %s\n", strings.Join(names, ", "))
		}
	}

	if len(m.Blacklist) > 0 {
		fmt.Printf("Banned: %s\n", strings.Join(m.Blacklist, ", "))
	}
}

func (o *Output) printPlayers(players []PlayerRef) {
	fmt.Printf("Online Players (%d):\n", len(players))
	for _, p := range players {
		fmt.Printf("  - %s (%s)\n", p.Username, p.ID)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
