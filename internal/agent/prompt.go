package agent

import (
	"fmt"
	"strings"
)

// GameDesign is the structured design document the design phase produces.
// Parsed leniently from agent output; anything the agent adds beyond these
// fields is ignored.
type GameDesign struct {
	Title        string   `json:"title"`
	Genre        string   `json:"genre"`
	Description  string   `json:"description"`
	Mechanics    []string `json:"mechanics"`
	Controls     []string `json:"controls"`
	WinCondition string   `json:"win_condition"`
}

// DesignPrompt renders the design-phase task for a game concept.
func DesignPrompt(concept, engine string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Design a small browser game based on this concept: %s\n\n", concept)
	fmt.Fprintf(&b, "Target engine: %s.\n\n", engine)
	b.WriteString(`Produce a concise game design document as a single JSON object with the fields:
title, genre, description, mechanics (list), controls (list), win_condition.
Respond with the JSON object only.`)
	return b.String()
}

// BuildPrompt renders the build-phase task from a finished design.
func BuildPrompt(designPath, engine string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Implement the game described in the design document at %s using %s.\n\n", designPath, engine)
	b.WriteString(`Requirements:
- The game must run in a browser served by "npm run dev" on the configured port.
- Render into a <canvas> element.
- Expose window.game once the engine is initialized and set window.gameRunning = true when the main loop starts.
- Keep the console free of errors.
Write all files into the current working directory.`)
	return b.String()
}

// FixPrompt renders the rework task after a failed QA run.
func FixPrompt(reportPath string) string {
	return fmt.Sprintf(`The game failed QA. Read the report at %s, fix every failing check, and make sure the game still builds and runs. Do not introduce new console errors.`, reportPath)
}
