package dispatch

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrDuplicateAction = errors.New("action registered twice")
	ErrMissingAction   = errors.New("action has no handler")
)

type entry struct {
	name    string
	handler Handler
}

func buildRegistry(entries []entry) (map[string]Handler, error) {
	reg := make(map[string]Handler, len(entries))
	for _, e := range entries {
		if e.name == "" || e.handler == nil {
			return nil, fmt.Errorf("invalid registry entry %q", e.name)
		}
		if _, dup := reg[e.name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAction, e.name)
		}
		reg[e.name] = e.handler
	}
	return reg, nil
}

func validate(reg map[string]Handler, required []string) error {
	var missing []string
	for _, name := range required {
		if _, ok := reg[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %v", ErrMissingAction, missing)
	}
	return nil
}
