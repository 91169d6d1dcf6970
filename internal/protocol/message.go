// Package protocol implements the wire schema and correlation engine that
// lets a frontend and backend process drive a libretro core across a byte
// stream as if the core's C-ABI callbacks were ordinary function calls.
package protocol

// Tag identifies a MessageType variant. Blocking/response classification is
// a pure function of the tag alone — it must never depend on payload
// contents or runtime state.
type Tag uint8

const (
	TagInit Tag = iota
	TagDeinit
	TagLoad
	TagUnload
	TagReset
	TagRun
	TagRunResponse
	TagSystemInfo
	TagSystemInfoResponse
	TagAVInfo
	TagAVInfoResponse
	TagAPIVersion
	TagAPIVersionResponse
	TagVideoRefresh
	TagAudioSample
	TagPollInput
	TagInputState
	TagInputResponse
	TagSetVariables
	TagGetVariable
	TagGetVariableResponse
	TagUnsupported
)

func (t Tag) String() string {
	switch t {
	case TagInit:
		return "Init"
	case TagDeinit:
		return "Deinit"
	case TagLoad:
		return "Load"
	case TagUnload:
		return "Unload"
	case TagReset:
		return "Reset"
	case TagRun:
		return "Run"
	case TagRunResponse:
		return "RunResponse"
	case TagSystemInfo:
		return "SystemInfo"
	case TagSystemInfoResponse:
		return "SystemInfoResponse"
	case TagAVInfo:
		return "AVInfo"
	case TagAVInfoResponse:
		return "AVInfoResponse"
	case TagAPIVersion:
		return "APIVersion"
	case TagAPIVersionResponse:
		return "APIVersionResponse"
	case TagVideoRefresh:
		return "VideoRefresh"
	case TagAudioSample:
		return "AudioSample"
	case TagPollInput:
		return "PollInput"
	case TagInputState:
		return "InputState"
	case TagInputResponse:
		return "InputResponse"
	case TagSetVariables:
		return "SetVariables"
	case TagGetVariable:
		return "GetVariable"
	case TagGetVariableResponse:
		return "GetVariableResponse"
	case TagUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// IsBlocking reports whether the sender of a message with this tag must
// receive a response before proceeding.
func (t Tag) IsBlocking() bool {
	switch t {
	case TagRun, TagSystemInfo, TagAVInfo, TagAPIVersion, TagInputState, TagGetVariable:
		return true
	default:
		return false
	}
}

// IsResponse reports whether a message with this tag is itself a reply,
// carrying the originator's id.
func (t Tag) IsResponse() bool {
	switch t {
	case TagRunResponse, TagSystemInfoResponse, TagAVInfoResponse, TagAPIVersionResponse,
		TagInputResponse, TagGetVariableResponse, TagUnsupported:
		return true
	default:
		return false
	}
}

// Payload is implemented by every MessageType variant.
type Payload interface {
	Tag() Tag
}

// Message is the wire envelope: an id plus a tagged payload. id is either a
// fresh value chosen by the originator or the id of the request this
// message responds to.
type Message struct {
	ID      uint64
	Payload Payload
}

func (m Message) IsBlocking() bool { return m.Payload.Tag().IsBlocking() }
func (m Message) IsResponse() bool { return m.Payload.Tag().IsResponse() }

// --- F->B control messages, non-blocking, non-response ---

type Init struct{}

func (Init) Tag() Tag { return TagInit }

type Deinit struct{}

func (Deinit) Tag() Tag { return TagDeinit }

type Load struct{ Path string }

func (Load) Tag() Tag { return TagLoad }

type Unload struct{}

func (Unload) Tag() Tag { return TagUnload }

type Reset struct{}

func (Reset) Tag() Tag { return TagReset }

// --- blocking request / response pairs ---

type Run struct{}

func (Run) Tag() Tag { return TagRun }

type RunResponse struct{}

func (RunResponse) Tag() Tag { return TagRunResponse }

// SystemInfo mirrors retro_get_system_info.
type SystemInfo struct {
	LibraryName     string
	LibraryVersion  string
	ValidExtensions []string
	NeedFullpath    bool
	BlockExtract    bool
}

type SystemInfoRequest struct{}

func (SystemInfoRequest) Tag() Tag { return TagSystemInfo }

type SystemInfoResponse struct{ Info SystemInfo }

func (SystemInfoResponse) Tag() Tag { return TagSystemInfoResponse }

// AVInfo mirrors retro_get_system_av_info.
type AVInfo struct {
	BaseWidth, BaseHeight uint32
	MaxWidth, MaxHeight   uint32
	AspectRatio           float32
	FPS                   float64
	SampleRate            float64
}

type AVInfoRequest struct{}

func (AVInfoRequest) Tag() Tag { return TagAVInfo }

type AVInfoResponse struct{ Info AVInfo }

func (AVInfoResponse) Tag() Tag { return TagAVInfoResponse }

type APIVersionRequest struct{}

func (APIVersionRequest) Tag() Tag { return TagAPIVersion }

type APIVersionResponse struct{ Version uint32 }

func (APIVersionResponse) Tag() Tag { return TagAPIVersionResponse }

// --- B->F callback-originated messages ---

// SoftwareFrame carries a decoded RGBA8888 framebuffer. A VideoRefresh with
// a nil Software field is the hardware-rendered path: the core drew
// directly into a shared GPU context the host would have to sample
// out-of-band, which this host does not support.
type SoftwareFrame struct {
	Framebuffer   []byte
	Width, Height uint32
}

type VideoRefresh struct {
	Software *SoftwareFrame
}

func (VideoRefresh) Tag() Tag { return TagVideoRefresh }

// AudioSample carries an interleaved stereo i16 batch.
type AudioSample struct{ Samples []int16 }

func (AudioSample) Tag() Tag { return TagAudioSample }

type PollInput struct{}

func (PollInput) Tag() Tag { return TagPollInput }

type InputState struct {
	Port, Device, Index, ID uint32
}

func (InputState) Tag() Tag { return TagInputState }

type InputResponse struct{ Value int16 }

func (InputResponse) Tag() Tag { return TagInputResponse }

// Variable is one entry of a core's SetVariables announcement.
type Variable struct {
	Key         string
	Description string
	Options     []string
	Default     string
}

type SetVariables struct{ Variables []Variable }

func (SetVariables) Tag() Tag { return TagSetVariables }

type GetVariable struct{ Key string }

func (GetVariable) Tag() Tag { return TagGetVariable }

// GetVariableResponse.Value is nil when the frontend has no value for Key.
type GetVariableResponse struct{ Value *string }

func (GetVariableResponse) Tag() Tag { return TagGetVariableResponse }

// Unsupported is the negative-acknowledgement reply a handler sends for a
// blocking request it cannot service, so the peer never parks forever.
type Unsupported struct{ For Tag }

func (Unsupported) Tag() Tag { return TagUnsupported }
