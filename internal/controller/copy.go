package controller

import (
	"context"
	"fmt"
	"strconv"

	"scenepanel/internal/mode"
	"scenepanel/internal/profile"
)

// CopyRequest copies or swaps button configuration between custom pages of
// one or two controllers of the same family.
type CopyRequest struct {
	Swap bool `json:"swap"`
	// Page copies every line of the page and its line count.
	Page         bool                  `json:"page"`
	SourceDevice int                   `json:"source_device"`
	SourceScreen profile.ScreenAddress `json:"source_screen"`
	SourceButton int                   `json:"source_button,omitempty"`
	DestDevice   int                   `json:"dest_device"`
	DestScreen   profile.ScreenAddress `json:"dest_screen"`
	DestButton   int                   `json:"dest_button,omitempty"`
}

type buttonConfig struct {
	label, font, align, mode string
}

// CopyLines copies (or swaps) labels, fonts, alignments and modes including
// the extra states of N-state buttons. Scenes stay with their buttons.
func (p *Panel) CopyLines(ctx context.Context, req CopyRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	src, err := p.Controller(req.SourceDevice)
	if err != nil {
		return err
	}
	dst, err := p.Controller(req.DestDevice)
	if err != nil {
		return err
	}
	if src.Profile != dst.Profile {
		return fmt.Errorf("%w: controllers use different profiles", ErrInvalidArgument)
	}
	if !src.Profile.HasScreen {
		return fmt.Errorf("copy lines: %w", ErrNotSupported)
	}
	for _, s := range []struct {
		c      *Controller
		screen profile.ScreenAddress
	}{{src, req.SourceScreen}, {dst, req.DestScreen}} {
		if s.screen.Type != profile.ScreenCustom {
			return fmt.Errorf("%w: %s is not a custom screen", ErrInvalidArgument, s.screen)
		}
		if err := p.checkScreen(s.c, s.screen); err != nil {
			return err
		}
	}

	type pair struct{ from, to int }
	var pairs []pair
	if req.Page {
		for b := 1; b <= src.Profile.MaxScroll; b++ {
			pairs = append(pairs, pair{b, b})
		}
	} else {
		for _, b := range []int{req.SourceButton, req.DestButton} {
			if b < 1 || b > src.Profile.MaxScroll {
				return fmt.Errorf("%w: button %d", ErrInvalidArgument, b)
			}
		}
		pairs = append(pairs, pair{req.SourceButton, req.DestButton})
	}
	if req.SourceDevice == req.DestDevice && req.SourceScreen == req.DestScreen && req.Page {
		return nil
	}

	srcVals := make(map[string]string)
	dstVals := make(map[string]string)
	var srcUpdates, dstUpdates []labelUpdate
	for _, pr := range pairs {
		states := max(p.stateCount(src, req.SourceScreen, pr.from), p.stateCount(dst, req.DestScreen, pr.to))
		for st := 1; st <= states; st++ {
			from := pr.from + (st-1)*1000
			to := pr.to + (st-1)*1000
			a := p.readButton(src, req.SourceScreen, from)
			b := p.readButton(dst, req.DestScreen, to)
			setButton(dstVals, req.DestScreen, to, a)
			dstUpdates = append(dstUpdates, labelUpdate{req.DestScreen, to, a})
			if req.Swap {
				setButton(srcVals, req.SourceScreen, from, b)
				srcUpdates = append(srcUpdates, labelUpdate{req.SourceScreen, from, b})
			}
		}
	}
	if req.Page {
		dstVals[numLinesVar(req.DestScreen)] = p.panelVar(src.Peer, numLinesVar(req.SourceScreen))
		if req.Swap {
			srcVals[numLinesVar(req.SourceScreen)] = p.panelVar(dst.Peer, numLinesVar(req.DestScreen))
		}
	}

	// on the same controller both sides must land in one batch
	if src.Peer == dst.Peer {
		for k, v := range srcVals {
			if _, clash := dstVals[k]; !clash {
				dstVals[k] = v
			}
		}
		srcVals = nil
	}
	if err := p.write(dst, dstVals); err != nil {
		return err
	}
	if len(srcVals) > 0 {
		if err := p.write(src, srcVals); err != nil {
			return err
		}
	}

	for _, u := range dstUpdates {
		p.pushLabel(ctx, dst, u)
	}
	for _, u := range srcUpdates {
		p.pushLabel(ctx, src, u)
	}
	p.logger.Info("lines copied", "from", src.Peer, "to", dst.Peer, "swap", req.Swap, "page", req.Page, "buttons", len(pairs))
	p.events.Emit(Event{Type: EventLinesCopied, Device: dst.Peer, Data: req})
	return nil
}

type labelUpdate struct {
	screen profile.ScreenAddress
	button int
	cfg    buttonConfig
}

func (p *Panel) pushLabel(ctx context.Context, c *Controller, u labelUpdate) {
	p.invoke(ctx, c, ActionUpdateCustomLabel, map[string]string{
		"Screen": u.screen.String(),
		"Button": strconv.Itoa(u.button),
		"Label":  u.cfg.label,
		"Font":   u.cfg.font,
		"Align":  u.cfg.align,
		"Mode":   u.cfg.mode,
	})
}

func (p *Panel) stateCount(c *Controller, screen profile.ScreenAddress, button int) int {
	return p.readMode(c, screen, button).Kind.States()
}

// readButton returns the stored configuration of a button with defaults
// filled in and the mode in canonical form.
func (p *Panel) readButton(c *Controller, screen profile.ScreenAddress, stateButton int) buttonConfig {
	d := p.readMode(c, screen, stateButton)
	return buttonConfig{
		label: p.panelVar(c.Peer, labelVar(screen, stateButton)),
		font:  orDefault(p.panelVar(c.Peer, fontVar(screen, stateButton)), profile.DefaultFont),
		align: orDefault(p.panelVar(c.Peer, alignVar(screen, stateButton)), profile.DefaultAlign),
		mode:  mode.Generate(c.Profile, d),
	}
}

func setButton(values map[string]string, screen profile.ScreenAddress, stateButton int, cfg buttonConfig) {
	values[labelVar(screen, stateButton)] = cfg.label
	values[fontVar(screen, stateButton)] = cfg.font
	values[alignVar(screen, stateButton)] = cfg.align
	values[modeVar(screen, stateButton)] = cfg.mode
}
