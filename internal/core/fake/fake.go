// Package fake provides a deterministic core.Library double driven
// entirely by Go, so backend tests never need a real shared object on
// disk.
package fake

import (
	"sync"

	"github.com/retrohost/retrohost/internal/core"
)

// Library is a scriptable core.Library. Each exported field can be set
// before use; Run invokes whatever RunFunc was configured, defaulting to
// a single VideoRefresh of a solid-color frame plus one audio batch.
type Library struct {
	mu sync.Mutex

	SystemInfo core.SystemInfo
	AVInfo     core.AVInfo
	APIVer     uint32

	LoadGameFunc func(path string) bool
	RunFunc      func(l *Library)

	loaded bool
	closed bool

	env          core.EnvironmentFunc
	videoRefresh core.VideoRefreshFunc
	audioSample  core.AudioSampleFunc
	audioBatch   core.AudioSampleBatchFunc
	inputPoll    core.InputPollFunc
	inputState   core.InputStateFunc

	InitCalls   int
	DeinitCalls int
	ResetCalls  int
	RunCalls    int
}

// New returns a Library with reasonable defaults for a small test core.
func New() *Library {
	return &Library{
		SystemInfo: core.SystemInfo{
			LibraryName:     "FakeCore",
			LibraryVersion:  "0.0.0",
			ValidExtensions: []string{"fake"},
		},
		AVInfo: core.AVInfo{
			BaseWidth: 4, BaseHeight: 4,
			MaxWidth: 4, MaxHeight: 4,
			AspectRatio: 1.0, FPS: 60, SampleRate: 48000,
		},
		APIVer: 1,
	}
}

func (l *Library) APIVersion() uint32 { return l.APIVer }

func (l *Library) Init()   { l.InitCalls++ }
func (l *Library) Deinit() { l.DeinitCalls++ }
func (l *Library) Reset()  { l.ResetCalls++ }

func (l *Library) LoadGame(path string) bool {
	if l.LoadGameFunc != nil {
		l.loaded = l.LoadGameFunc(path)
		return l.loaded
	}
	l.loaded = true
	return true
}

func (l *Library) UnloadGame() { l.loaded = false }

func (l *Library) Run() {
	l.RunCalls++
	if l.RunFunc != nil {
		l.RunFunc(l)
		return
	}
	if l.inputPoll != nil {
		l.inputPoll()
	}
	if l.videoRefresh != nil {
		frame := make([]byte, l.AVInfo.BaseWidth*l.AVInfo.BaseHeight*4)
		l.videoRefresh(frame, l.AVInfo.BaseWidth, l.AVInfo.BaseHeight, l.AVInfo.BaseWidth*4)
	}
	if l.audioBatch != nil {
		l.audioBatch(make([]int16, 64))
	}
}

func (l *Library) GetSystemInfo() core.SystemInfo { return l.SystemInfo }
func (l *Library) GetSystemAVInfo() core.AVInfo   { return l.AVInfo }

func (l *Library) SetEnvironment(fn core.EnvironmentFunc)               { l.env = fn }
func (l *Library) SetVideoRefresh(fn core.VideoRefreshFunc)             { l.videoRefresh = fn }
func (l *Library) SetAudioSample(fn core.AudioSampleFunc)               { l.audioSample = fn }
func (l *Library) SetAudioSampleBatch(fn core.AudioSampleBatchFunc)     { l.audioBatch = fn }
func (l *Library) SetInputPoll(fn core.InputPollFunc)                  { l.inputPoll = fn }
func (l *Library) SetInputState(fn core.InputStateFunc)                { l.inputState = fn }

// InvokeEnvironment lets a test drive the environment callback the way a
// core would, e.g. to exercise GET_VARIABLE handling.
func (l *Library) InvokeEnvironment(cmd uint32, data any) bool {
	if l.env == nil {
		return false
	}
	return l.env(cmd, data)
}

// InvokeInputState lets a test drive the input_state callback directly,
// bypassing Run, to assert on a specific (port, device, index, id) query.
func (l *Library) InvokeInputState(port, device, index, id int) int16 {
	if l.inputState == nil {
		return 0
	}
	return l.inputState(port, device, index, id)
}

func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *Library) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Loader is a core.Loader that hands back its Library on every Load,
// ignoring the path argument. With Library nil, each Load returns a
// fresh New().
type Loader struct {
	Library *Library
}

func (f Loader) Load(path string) (core.Library, error) {
	if f.Library == nil {
		return New(), nil
	}
	return f.Library, nil
}
