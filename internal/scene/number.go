// Package scene maps controller buttons to host scene numbers and keeps the
// registry of scenes triggered by those buttons.
package scene

import (
	"errors"
	"fmt"

	"scenepanel/internal/profile"
)

var (
	ErrUnknownScreenType = errors.New("screen type has no scene base")
	ErrSceneNotFound     = errors.New("scene not found")
	ErrSceneExists       = errors.New("scene already exists")
)

// stateOffset separates the virtual states of an n-state button.
const stateOffset = 1000

// Number returns the scene number a controller reports for button on screen
// in the given state (1 for the physical button). Buttons past the profile's
// button count belong to scroll groups, each offset by a further 100 above
// 200.
func Number(p *profile.Profile, screen profile.ScreenAddress, button, state int) (int, error) {
	base, ok := p.SceneBase(screen.Type)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownScreenType, screen)
	}
	if screen.Number < 1 || button < 1 || state < 1 {
		return 0, fmt.Errorf("invalid scene address %s button %d state %d", screen, button, state)
	}
	group := (button - 1) / p.NumButtons
	n := base + (screen.Number-1)*p.NumButtons + (button-1)%p.NumButtons + (state-1)*stateOffset
	if group > 0 {
		n += 200 + group*100
	}
	return n, nil
}

// StateButton returns the button index under which the labels and mode of
// an n-state button's extra states are stored.
func StateButton(button, state int) int {
	return button + (state-1)*stateOffset
}
