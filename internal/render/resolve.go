package render

import (
	"fmt"

	"github.com/rbright/animalese/internal/catalog"
	"github.com/rbright/animalese/internal/sound"
)

// Item is a sound event paired with the sprite window it renders.
type Item struct {
	Event sound.Event
	Entry catalog.Entry
}

// Resolve looks every event up in the catalog. Events that cannot be
// rendered are skipped and reported; commands are skipped silently.
func Resolve(cat *catalog.Catalog, events []sound.Event, profile sound.VoiceProfile) ([]Item, []error) {
	items := make([]Item, 0, len(events))
	var errs []error
	for i, ev := range events {
		path, err := sound.Parse(ev.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", i, err))
			continue
		}

		var ref catalog.Ref
		switch path.Kind {
		case sound.KindCommand:
			continue
		case sound.KindVoice:
			voiceType := ev.Type
			if voiceType == "" {
				voiceType = profile.VoiceType()
			}
			ref = catalog.Ref{Bank: catalog.BankVoice, Sub: voiceType, Key: path.Name}
		case sound.KindSfx:
			ref = catalog.Ref{Bank: catalog.BankSfx, Key: path.Name}
		case sound.KindGeneric:
			ref, err = cat.ResolveGeneric(path.Parts)
		default:
			err = fmt.Errorf("%w: %s paths cannot be rendered", catalog.ErrUnknownSprite, path.Kind)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d (%s): %w", i, ev.Path, err))
			continue
		}

		entry, err := cat.Lookup(ref)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d (%s): %w", i, ev.Path, err))
			continue
		}
		items = append(items, Item{Event: ev, Entry: entry})
	}
	return items, errs
}
