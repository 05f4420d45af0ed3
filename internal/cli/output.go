package cli

import (
	"encoding/json"
	"fmt"
	"os"
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

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Room:
		o.printRoom(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		o.printJSON(data)
	}
}

// Room response type (matches API)
type Room struct {
	ID          string       `json:"id"`
	Phase       string       `json:"phase"`
	DigitLength int          `json:"digit_length"`
	Players     []RoomPlayer `json:"players"`
	CurrentTurn string       `json:"current_turn,omitempty"`
	TurnCount   int          `json:"turn_count"`
}

// RoomPlayer response type
type RoomPlayer struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s\n", r.ID)
	fmt.Printf("Phase: %s\n", r.Phase)
	fmt.Printf("Digits: %d\n", r.DigitLength)
	fmt.Printf("Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		readyStr := ""
		if p.Ready {
			readyStr = " [ready]"
		}
		fmt.Printf("  - %s%s\n", p.Name, readyStr)
	}
	if r.CurrentTurn != "" {
		fmt.Printf("Turn: %s (guess #%d)\n", r.CurrentTurn, r.TurnCount+1)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
