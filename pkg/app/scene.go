package app

import (
	"fmt"
	"strings"

	"github.com/visionaid/go-visionaid/pkg/proximity"
)

// maxSceneObjects caps how many objects a spoken description names.
const maxSceneObjects = 5

func (a *App) setScene(events []proximity.Event) {
	a.sceneMu.Lock()
	a.scene = events
	a.sceneMu.Unlock()
}

// DescribeScene renders the most recent classified frame as a spoken
// sentence. It backs both the voice command handler and the periodic
// scene summaries.
func (a *App) DescribeScene() string {
	a.sceneMu.Lock()
	events := a.scene
	a.sceneMu.Unlock()

	if len(events) == 0 {
		return "nothing detected nearby"
	}

	parts := make([]string, 0, maxSceneObjects)
	for _, ev := range events {
		if len(parts) == maxSceneObjects {
			break
		}
		parts = append(parts, fmt.Sprintf("%s %s", ev.Object, phrase(ev.Direction)))
	}

	desc := "I can see " + strings.Join(parts, ", ")
	if rest := len(events) - len(parts); rest > 0 {
		desc += fmt.Sprintf(" and %d more", rest)
	}
	return desc
}

func phrase(d proximity.Direction) string {
	switch d {
	case proximity.DirLeft:
		return "to your left"
	case proximity.DirRight:
		return "to your right"
	default:
		return "ahead"
	}
}
