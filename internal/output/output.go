package output

import "github.com/MuchTitan/logtail/internal"

type Plugin interface {
	internal.Plugin
	Write(records []internal.Event) error
	Flush() error
}
