// Package control implements the control ingress (C8): a datagram
// listener that decodes wire packets, a bounded event queue, and a
// consumer that maps each decoded event onto a Scene Manager mutator.
// Modeled on the teacher's single-goroutine-per-responsibility services
// (dmx.Service.transmitLoop, fade.Engine.processFades) but split across
// a reader goroutine and a consumer goroutine, per spec.md §5's T1.
package control

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bbernstein/ledscene-go/internal/engine"
	"github.com/bbernstein/ledscene-go/internal/loader"
	"github.com/bbernstein/ledscene-go/internal/telemetry"
	"github.com/bbernstein/ledscene-go/pkg/lightproto"
)

const queueCapacity = 256

var paletteAddrPattern = regexp.MustCompile(`^/palette/(\d+)/(\d+)$`)

// Ingress owns the control-ingress UDP socket and the bounded queue
// feeding the consumer goroutine.
type Ingress struct {
	manager       *engine.Manager
	counters      *telemetry.Counters
	sceneDefaults loader.Defaults

	conn  *net.UDPConn
	queue chan lightproto.ControlEvent

	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates an Ingress bound to listenAddr (e.g. ":6455"). The socket
// is not opened until Start. sceneDefaults backstops a loaded scene
// document that omits led_count/fps (§6); its zero value falls back to
// the loader package's own defaults.
func New(manager *engine.Manager, counters *telemetry.Counters, sceneDefaults loader.Defaults) *Ingress {
	if counters == nil {
		counters = &telemetry.Counters{}
	}
	return &Ingress{
		manager:       manager,
		counters:      counters,
		sceneDefaults: sceneDefaults,
		queue:         make(chan lightproto.ControlEvent, queueCapacity),
	}
}

// Start opens the UDP socket and launches the reader and consumer
// goroutines.
func (in *Ingress) Start(listenAddr string) error {
	addr, err := net.ResolveUDPAddr("udp4", listenAddr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return err
	}
	in.conn = conn
	in.stopChan = make(chan struct{})
	in.doneChan = make(chan struct{}, 2)

	go in.readLoop()
	go in.consumeLoop()
	log.Printf("📡 control ingress listening on %s", listenAddr)
	return nil
}

// Stop closes the socket (unblocking the reader), signals the consumer
// to drain and exit, and waits for both goroutines.
func (in *Ingress) Stop() {
	close(in.stopChan)
	if in.conn != nil {
		_ = in.conn.Close()
	}
	<-in.doneChan
	<-in.doneChan
	log.Printf("📡 control ingress stopped")
}

func (in *Ingress) readLoop() {
	defer func() { in.doneChan <- struct{}{} }()

	buf := make([]byte, 2048)
	for {
		n, _, err := in.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-in.stopChan:
				return
			default:
				log.Printf("📡 control ingress: fatal read error, stopping: %v", err)
				return
			}
		}

		ev, err := lightproto.ParseControlPacket(buf[:n])
		if err != nil {
			in.counters.MalformedInput.Add(1)
			log.Printf("📡 control ingress [%s]: malformed packet dropped: %v", uuid.New(), err)
			continue
		}

		select {
		case in.queue <- ev:
		default:
			in.counters.MalformedInput.Add(1)
			log.Printf("📡 control ingress [%s]: queue full, dropping %s", uuid.New(), ev.Address)
		}
	}
}

func (in *Ingress) consumeLoop() {
	defer func() { in.doneChan <- struct{}{} }()

	for {
		select {
		case <-in.stopChan:
			for {
				select {
				case ev := <-in.queue:
					in.dispatch(ev)
				default:
					return
				}
			}
		case ev := <-in.queue:
			in.dispatch(ev)
		}
	}
}

func (in *Ingress) dispatch(ev lightproto.ControlEvent) {
	if m := paletteAddrPattern.FindStringSubmatch(ev.Address); m != nil {
		p, _ := strconv.Atoi(m[1])
		c, _ := strconv.Atoi(m[2])
		if len(ev.IntArgs) < 3 {
			in.counters.MalformedInput.Add(1)
			return
		}
		in.manager.SetPaletteColor(p, c, int(ev.IntArgs[0]), int(ev.IntArgs[1]), int(ev.IntArgs[2]))
		return
	}

	switch ev.Address {
	case "/load_json":
		in.loadScene(ev.StringArg)
	case "/change_scene":
		if id, ok := firstIntArg(ev); ok {
			in.manager.CacheChangeScene(id)
		} else {
			in.counters.MalformedInput.Add(1)
		}
	case "/change_effect":
		if id, ok := firstIntArg(ev); ok {
			in.manager.CacheChangeEffect(id)
		} else {
			in.counters.MalformedInput.Add(1)
		}
	case "/change_palette":
		if id, ok := firstIntArg(ev); ok {
			in.manager.CacheChangePalette(id)
		} else {
			in.counters.MalformedInput.Add(1)
		}
	case "/change_pattern":
		in.manager.CommitPattern(time.Now())
	case "/pause":
		in.manager.Pause()
	case "/resume":
		in.manager.Resume()
	case "/load_dissolve_json":
		in.loadDissolve(ev.StringArg)
	case "/set_dissolve_pattern":
		if id, ok := firstIntArg(ev); ok {
			in.manager.SetDissolvePattern(id)
		} else {
			in.counters.MalformedInput.Add(1)
		}
	case "/set_speed_percent":
		if p, ok := firstIntArg(ev); ok {
			in.manager.SetSpeed(p)
		} else {
			in.counters.MalformedInput.Add(1)
		}
	case "/master_brightness":
		if b, ok := firstIntArg(ev); ok {
			in.manager.SetMasterBrightness(b)
		} else {
			in.counters.MalformedInput.Add(1)
		}
	default:
		in.counters.MalformedInput.Add(1)
		log.Printf("📡 control ingress: unknown address %q dropped", ev.Address)
	}
}

func firstIntArg(ev lightproto.ControlEvent) (int, bool) {
	if len(ev.IntArgs) == 0 {
		return 0, false
	}
	return int(ev.IntArgs[0]), true
}

const defaultSceneExt = ".json"
const defaultDissolveExt = ".json"

func (in *Ingress) loadScene(path string) {
	path = withDefaultExt(path, defaultSceneExt)
	data, err := os.ReadFile(path)
	if err != nil {
		in.counters.LoadFailure.Add(1)
		log.Printf("🎨 scene load failed for %s: %v", path, err)
		return
	}

	parse := loader.LoadSceneBundle
	if isYAMLPath(path) {
		parse = loader.LoadSceneBundleYAML
	}
	bundle, err := parse(data, in.sceneDefaults)
	if err != nil {
		in.counters.LoadFailure.Add(1)
		log.Printf("🎨 scene bundle rejected for %s: %v", path, err)
		if bundle == nil {
			return
		}
	}
	in.manager.LoadScenes(bundle, time.Now())
	log.Printf("🎨 loaded %d scene(s) from %s", len(bundle.Scenes), path)
}

func (in *Ingress) loadDissolve(path string) {
	path = withDefaultExt(path, defaultDissolveExt)
	data, err := os.ReadFile(path)
	if err != nil {
		in.counters.LoadFailure.Add(1)
		log.Printf("🎨 dissolve load failed for %s: %v", path, err)
		return
	}
	parse := loader.LoadDissolveBundle
	if isYAMLPath(path) {
		parse = loader.LoadDissolveBundleYAML
	}
	patterns, err := parse(data)
	if err != nil {
		in.counters.LoadFailure.Add(1)
		log.Printf("🎨 dissolve bundle rejected for %s: %v", path, err)
		if patterns == nil {
			return
		}
	}
	in.manager.LoadDissolvePatterns(patterns)
	log.Printf("🎨 loaded %d dissolve pattern(s) from %s", len(patterns), path)
}

func isYAMLPath(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

func withDefaultExt(path, ext string) string {
	if filepath.Ext(path) == "" {
		return path + ext
	}
	return path
}
