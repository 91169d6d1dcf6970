// Package backend hosts a loaded libretro core in the same process as
// its shared object, translating the core's six ABI callbacks into
// protocol messages sent to the frontend and servicing the frontend's
// control messages by calling into the core.
package backend

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/retrohost/retrohost/internal/core"
	"github.com/retrohost/retrohost/internal/metrics"
	"github.com/retrohost/retrohost/internal/protocol"
	"github.com/retrohost/retrohost/internal/video"
)

// Session drives one loaded core for the lifetime of a single adapter
// connection. It is not safe for concurrent use from more than the one
// goroutine that calls Serve; the core callbacks it wires run on whatever
// goroutine the core itself calls them from, which for every libretro
// core in practice is the goroutine that calls lib.Run.
type Session struct {
	log      *slog.Logger
	adapter  *protocol.Adapter
	events   *protocol.Events
	loader   core.Loader
	corePath string
	baseDir  string

	lib       core.Library
	format    video.PixelFormat
	saveDir   string
	systemDir string
}

// New builds a Session that loads corePath lazily, on the first Init
// message from the frontend. The core's save and system directories are
// created under baseDir (the process's working directory if empty).
func New(log *slog.Logger, adapter *protocol.Adapter, events *protocol.Events, loader core.Loader, corePath string, baseDir string) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		log:      log,
		adapter:  adapter,
		events:   events,
		loader:   loader,
		corePath: corePath,
		baseDir:  baseDir,
		format:   video.PixelFormat0RGB1555, // libretro's default until SET_PIXEL_FORMAT
	}
}

// Serve processes frontend messages until the adapter shuts down or ctx
// is cancelled. ctx is checked between messages only: while Serve waits
// for the next message, cancellation takes effect once a message arrives
// or the adapter shuts down. It returns the adapter's terminal error, if
// any.
func (s *Session) Serve(ctx context.Context) error {
	defer func() {
		if s.lib != nil {
			s.lib.Deinit()
			if err := s.lib.Close(); err != nil {
				s.log.Warn("core close failed", "err", err)
			}
			s.lib = nil
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, reply, ok := s.events.Poll()
		if !ok {
			return s.adapter.Err()
		}
		s.dispatch(msg, reply)
	}
}

func (s *Session) dispatch(msg protocol.Message, reply protocol.ReplyFunc) {
	switch p := msg.Payload.(type) {
	case protocol.Init:
		s.handleInit()
	case protocol.Deinit:
		if s.lib != nil {
			s.lib.Deinit()
		}
	case protocol.Load:
		s.handleLoad(p)
	case protocol.Unload:
		if s.lib != nil {
			s.lib.UnloadGame()
		}
	case protocol.Reset:
		if s.lib != nil {
			s.lib.Reset()
		}
	case protocol.Run:
		s.handleRun(reply)
	case protocol.SystemInfoRequest:
		s.handleSystemInfo(reply)
	case protocol.AVInfoRequest:
		s.handleAVInfo(reply)
	case protocol.APIVersionRequest:
		s.handleAPIVersion(reply)
	default:
		if msg.IsBlocking() {
			reply(protocol.Unsupported{For: msg.Payload.Tag()})
		} else {
			s.log.Warn("unhandled non-blocking message", "tag", msg.Payload.Tag())
		}
	}
}

func (s *Session) handleInit() {
	if s.lib != nil {
		s.log.Warn("Init received for an already-loaded core, ignoring")
		return
	}
	if err := s.prepareDirectories(); err != nil {
		s.log.Error("preparing save/system directories failed", "err", err)
		return
	}
	lib, err := s.loader.Load(s.corePath)
	if err != nil {
		metrics.CoreLoadFailuresTotal.Inc()
		s.log.Error("core load failed", "path", s.corePath, "err", err)
		return
	}
	s.lib = lib
	s.wireCallbacks(lib)
	lib.Init()
}

// prepareDirectories creates ./saves and ./system under baseDir if absent
// and resolves their canonical absolute paths, so the pointers handed out
// by GetSaveDirectory/GetSystemDirectory stay valid for the rest of the
// session.
func (s *Session) prepareDirectories() error {
	for _, d := range []struct {
		name string
		dst  *string
	}{
		{"saves", &s.saveDir},
		{"system", &s.systemDir},
	} {
		path := filepath.Join(s.baseDir, d.name)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		*d.dst = abs
	}
	return nil
}

func (s *Session) handleLoad(p protocol.Load) {
	if s.lib == nil {
		s.log.Error("Load received before Init")
		return
	}
	if !s.lib.LoadGame(p.Path) {
		s.log.Error("core rejected game", "path", p.Path)
	}
}

func (s *Session) handleRun(reply protocol.ReplyFunc) {
	if s.lib == nil {
		reply(protocol.Unsupported{For: protocol.TagRun})
		return
	}
	s.lib.Run()
	reply(protocol.RunResponse{})
}

func (s *Session) handleSystemInfo(reply protocol.ReplyFunc) {
	if s.lib == nil {
		reply(protocol.Unsupported{For: protocol.TagSystemInfo})
		return
	}
	reply(protocol.SystemInfoResponse{Info: toProtocolSystemInfo(s.lib.GetSystemInfo())})
}

func (s *Session) handleAVInfo(reply protocol.ReplyFunc) {
	if s.lib == nil {
		reply(protocol.Unsupported{For: protocol.TagAVInfo})
		return
	}
	reply(protocol.AVInfoResponse{Info: toProtocolAVInfo(s.lib.GetSystemAVInfo())})
}

func (s *Session) handleAPIVersion(reply protocol.ReplyFunc) {
	if s.lib == nil {
		reply(protocol.Unsupported{For: protocol.TagAPIVersion})
		return
	}
	reply(protocol.APIVersionResponse{Version: s.lib.APIVersion()})
}
