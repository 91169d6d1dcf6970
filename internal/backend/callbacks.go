package backend

import (
	"github.com/retrohost/retrohost/internal/core"
	"github.com/retrohost/retrohost/internal/protocol"
	"github.com/retrohost/retrohost/internal/video"
)

// wireCallbacks registers translations for each of the six core ABI
// callbacks: each becomes either a fire-and-forget Send (video, audio,
// input poll, variable announcements) or a blocking Send the callback
// waits on before returning to the core (input state, get variable).
func (s *Session) wireCallbacks(lib core.Library) {
	lib.SetEnvironment(s.handleEnvironment)
	lib.SetVideoRefresh(s.handleVideoRefresh)
	lib.SetAudioSample(s.handleAudioSample)
	lib.SetAudioSampleBatch(s.handleAudioSampleBatch)
	lib.SetInputPoll(s.handleInputPoll)
	lib.SetInputState(s.handleInputState)
}

func (s *Session) handleEnvironment(cmd uint32, data any) bool {
	switch cmd {
	case core.EnvSetPixelFormat:
		fmtVal, ok := data.(core.PixelFormat)
		if !ok {
			return false
		}
		s.format = coreToVideoFormat(fmtVal)
		return true

	case core.EnvSetVariables:
		defs, ok := data.([]core.VariableDefinition)
		if !ok {
			return false
		}
		s.adapter.Send(protocol.SetVariables{Variables: toProtocolVariables(defs)})
		return true

	case core.EnvGetVariable:
		req, ok := data.(*core.GetVariableData)
		if !ok {
			return false
		}
		future := s.adapter.Send(protocol.GetVariable{Key: req.Key})
		resp, err := protocol.Expect[protocol.GetVariableResponse](future)
		if err != nil || resp.Value == nil {
			req.Found = false
			return false
		}
		req.Value = *resp.Value
		req.Found = true
		return true

	case core.EnvGetSystemDirectory:
		req, ok := data.(*core.DirectoryData)
		if !ok {
			return false
		}
		req.Path = s.systemDir
		return true

	case core.EnvGetSaveDirectory:
		req, ok := data.(*core.DirectoryData)
		if !ok {
			return false
		}
		req.Path = s.saveDir
		return true

	default:
		return false
	}
}

func coreToVideoFormat(f core.PixelFormat) video.PixelFormat {
	switch f {
	case core.PixelFormatXRGB8888:
		return video.PixelFormatXRGB8888
	case core.PixelFormatRGB565:
		return video.PixelFormatRGB565
	default:
		return video.PixelFormat0RGB1555
	}
}

func (s *Session) handleVideoRefresh(data []byte, width, height, pitch int) {
	if data == nil {
		// Hardware-rendered frame: out of scope, nothing to forward.
		s.log.Debug("dropping hardware-rendered frame")
		return
	}
	rgba, err := video.ConvertFrame(s.format, data, width, height, pitch)
	if err != nil {
		s.log.Error("pixel decode failed", "err", err, "width", width, "height", height, "pitch", pitch)
		return
	}
	s.adapter.Send(protocol.VideoRefresh{Software: &protocol.SoftwareFrame{
		Framebuffer: rgba,
		Width:       uint32(width),
		Height:      uint32(height),
	}})
}

func (s *Session) handleAudioSample(left, right int16) {
	s.adapter.Send(protocol.AudioSample{Samples: []int16{left, right}})
}

func (s *Session) handleAudioSampleBatch(samples []int16) int {
	s.adapter.Send(protocol.AudioSample{Samples: append([]int16(nil), samples...)})
	return len(samples) / 2
}

func (s *Session) handleInputPoll() {
	s.adapter.Send(protocol.PollInput{})
}

func (s *Session) handleInputState(port, device, index, id int) int16 {
	future := s.adapter.Send(protocol.InputState{
		Port: uint32(port), Device: uint32(device), Index: uint32(index), ID: uint32(id),
	})
	resp, err := protocol.Expect[protocol.InputResponse](future)
	if err != nil {
		return 0
	}
	return resp.Value
}
