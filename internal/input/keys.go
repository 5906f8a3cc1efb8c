package input

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var namedKeys = map[string]string{
	"enter":      "enter",
	"return":     "enter",
	"shift":      "shift",
	"control":    "ctrl",
	"ctrl":       "ctrl",
	"alt":        "alt",
	"option":     "alt",
	"meta":       "cmd",
	"command":    "cmd",
	"cmd":        "cmd",
	"super":      "cmd",
	"win":        "cmd",
	"escape":     "esc",
	"esc":        "esc",
	" ":          "space",
	"space":      "space",
	"tab":        "tab",
	"backspace":  "backspace",
	"delete":     "delete",
	"del":        "delete",
	"insert":     "insert",
	"home":       "home",
	"end":        "end",
	"pageup":     "pageup",
	"page_up":    "pageup",
	"pagedown":   "pagedown",
	"page_down":  "pagedown",
	"capslock":   "capslock",
	"caps_lock":  "capslock",
	"up":         "up",
	"down":       "down",
	"left":       "left",
	"right":      "right",
	"arrowup":    "up",
	"arrowdown":  "down",
	"arrowleft":  "left",
	"arrowright": "right",
}

func init() {
	for i := 1; i <= 12; i++ {
		f := fmt.Sprintf("f%d", i)
		namedKeys[f] = f
	}
}

// Key is a resolved key token: the backend names to press in order.
type Key struct {
	Token string
	Names []string
	// Literal is set when an unrecognised multi-character token is sent
	// one character at a time.
	Literal bool
}

// ResolveKey maps a client key token to backend key names. Named keys are
// case-insensitive; any other single character is sent as itself.
func ResolveKey(token string) Key {
	k := Key{Token: token}
	if token == "" {
		return k
	}
	if name, ok := namedKeys[strings.ToLower(token)]; ok {
		k.Names = []string{name}
		return k
	}
	runes := []rune(token)
	if len(runes) == 1 {
		k.Names = []string{token}
		return k
	}
	k.Literal = true
	for _, r := range runes {
		k.Names = append(k.Names, string(r))
	}
	return k
}

// ParseCombo splits "ctrl+shift+a" into its tokens. A single character is
// never split. A doubled plus ("ctrl++b") or a trailing one ("ctrl+") names
// the plus key.
func ParseCombo(s string) []string {
	if s == "" {
		return nil
	}
	if len([]rune(s)) == 1 {
		return []string{s}
	}
	parts := strings.Split(s, "+")
	out := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		p := strings.TrimSpace(parts[i])
		if p != "" {
			out = append(out, p)
			continue
		}
		if i == 0 {
			continue
		}
		switch {
		case i == len(parts)-1:
			out = append(out, "+")
		case parts[i+1] == "":
			out = append(out, "+")
			i++
		}
	}
	return out
}

// IsCombo reports whether s names more than one key.
func IsCombo(s string) bool {
	return len(ParseCombo(s)) > 1
}

// PressKey holds a key down.
func (in *Injector) PressKey(token string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.keyDown(in.resolve(token))
}

// ReleaseKey lets a held key go.
func (in *Injector) ReleaseKey(token string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.keyUp(in.resolve(token))
}

// TapKey presses and releases a key, or sends a combination when token
// contains one.
func (in *Injector) TapKey(token string) error {
	if IsCombo(token) {
		return in.SendCombo(token)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	k := in.resolve(token)
	if err := in.keyDown(k); err != nil {
		return err
	}
	return in.keyUp(k)
}

// HoldKey presses a key, or every key of a combination in order, and leaves
// it held.
func (in *Injector) HoldKey(token string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	var held []Key
	for _, tok := range ParseCombo(token) {
		k := in.resolve(tok)
		if err := in.keyDown(k); err != nil {
			in.releaseAll(held)
			return err
		}
		held = append(held, k)
	}
	return nil
}

// SendCombo presses the modifiers in order, taps the last key, then
// releases the modifiers in reverse order. Keys already pressed are released
// when a later press fails.
func (in *Injector) SendCombo(combo string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	tokens := ParseCombo(combo)
	if len(tokens) == 0 {
		return nil
	}
	var held []Key
	for _, tok := range tokens {
		k := in.resolve(tok)
		if err := in.keyDown(k); err != nil {
			in.releaseAll(held)
			return err
		}
		held = append(held, k)
	}
	return in.releaseAll(held)
}

// TypeText emits one character event per rune in order.
func (in *Injector) TypeText(text string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, r := range text {
		if err := in.backend.Type(r); err != nil {
			return fmt.Errorf("%w: type %q: %w", ErrInjectionFailure, r, err)
		}
	}
	return nil
}

func (in *Injector) resolve(token string) Key {
	k := ResolveKey(token)
	if k.Literal {
		in.log.Debug("unknown key token, sending characters", zap.String("token", token))
	}
	return k
}

func (in *Injector) keyDown(k Key) error {
	for i, name := range k.Names {
		if err := in.backend.Key(name, true); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = in.backend.Key(k.Names[j], false)
			}
			return fmt.Errorf("%w: key down %q: %w", ErrInjectionFailure, name, err)
		}
	}
	return nil
}

func (in *Injector) keyUp(k Key) error {
	var errs []error
	for i := len(k.Names) - 1; i >= 0; i-- {
		if err := in.backend.Key(k.Names[i], false); err != nil {
			errs = append(errs, fmt.Errorf("key up %q: %w", k.Names[i], err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInjectionFailure, err)
	}
	return nil
}

func (in *Injector) releaseAll(held []Key) error {
	var first error
	for i := len(held) - 1; i >= 0; i-- {
		if err := in.keyUp(held[i]); err != nil && first == nil {
			first = err
		}
	}
	return first
}
