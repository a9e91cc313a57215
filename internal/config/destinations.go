package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/bbernstein/ledscene-go/internal/transport"
)

// destinationSpec mirrors one entry of the output-destinations document
// (§6): a remote light controller and the LED range it should receive.
type destinationSpec struct {
	IP       string `mapstructure:"ip"`
	Port     int    `mapstructure:"port"`
	StartLED int    `mapstructure:"start_led"`
	EndLED   int    `mapstructure:"end_led"`
	CopyMode bool   `mapstructure:"copy_mode"`
}

// DestinationWatcher loads the output-destinations document with viper
// and reloads it whenever the file changes on disk, courtesy of
// fsnotify. This is the hot-reload collaborator §6 calls "configuration
// parsing" — the engine core itself only ever sees
// []transport.Destination.
type DestinationWatcher struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// LoadDestinations reads the destinations document at path (YAML or
// JSON, by extension) and returns the decoded list. A missing file
// yields an empty list rather than an error, since fan-out is optional.
func LoadDestinations(path string) ([]transport.Destination, *DestinationWatcher, error) {
	v := viper.New()
	v.SetConfigFile(path)

	dests, err := readDestinations(v)
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, fs.ErrNotExist) {
			log.Printf("⚙️  no destinations file at %s, starting with none configured", path)
			return nil, &DestinationWatcher{v: v, path: path}, nil
		}
		return nil, nil, err
	}

	return dests, &DestinationWatcher{v: v, path: path}, nil
}

func readDestinations(v *viper.Viper) ([]transport.Destination, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var specs []destinationSpec
	if err := v.UnmarshalKey("destinations", &specs); err != nil {
		return nil, fmt.Errorf("config: decoding destinations: %w", err)
	}

	out := make([]transport.Destination, 0, len(specs))
	for _, s := range specs {
		out = append(out, transport.Destination{
			IP:       s.IP,
			Port:     s.Port,
			StartLED: s.StartLED,
			EndLED:   s.EndLED,
			CopyMode: s.CopyMode,
		})
	}
	return out, nil
}

// Watch starts an fsnotify watch on the destinations file and invokes
// onChange with the freshly decoded list every time it is written.
// Decode failures are logged and skipped, leaving the previous
// destinations in place (an empty fan-out is worse than a stale one).
// This drives fsnotify directly rather than through viper.WatchConfig,
// since viper exposes no way to stop a watch — the returned stop func is
// the clean shutdown hook cmd/server calls during its cleanup sequence.
func (w *DestinationWatcher) Watch(onChange func([]transport.Destination)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: starting destinations watcher: %w", err)
	}
	if err := watcher.Add(w.path); err != nil {
		_ = watcher.Close()
		log.Printf("⚙️  destinations file %s not watchable yet: %v", w.path, err)
		return func() { _ = watcher.Close() }, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.mu.Lock()
				dests, err := readDestinations(w.v)
				w.mu.Unlock()
				if err != nil {
					log.Printf("⚙️  destinations reload from %s failed, keeping previous set: %v", w.path, err)
					continue
				}
				log.Printf("⚙️  destinations reloaded: %d destination(s)", len(dests))
				onChange(dests)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚙️  destinations watcher error: %v", err)
			}
		}
	}()

	stop := func() {
		_ = watcher.Close()
		<-done
	}
	return stop, nil
}
