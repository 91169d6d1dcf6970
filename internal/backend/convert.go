package backend

import (
	"github.com/retrohost/retrohost/internal/core"
	"github.com/retrohost/retrohost/internal/protocol"
)

func toProtocolSystemInfo(info core.SystemInfo) protocol.SystemInfo {
	return protocol.SystemInfo{
		LibraryName:     info.LibraryName,
		LibraryVersion:  info.LibraryVersion,
		ValidExtensions: info.ValidExtensions,
		NeedFullpath:    info.NeedFullpath,
		BlockExtract:    info.BlockExtract,
	}
}

func toProtocolAVInfo(info core.AVInfo) protocol.AVInfo {
	return protocol.AVInfo{
		BaseWidth: uint32(info.BaseWidth), BaseHeight: uint32(info.BaseHeight),
		MaxWidth: uint32(info.MaxWidth), MaxHeight: uint32(info.MaxHeight),
		AspectRatio: info.AspectRatio,
		FPS:         info.FPS,
		SampleRate:  info.SampleRate,
	}
}

func toProtocolVariables(defs []core.VariableDefinition) []protocol.Variable {
	out := make([]protocol.Variable, len(defs))
	for i, d := range defs {
		out[i] = protocol.Variable{
			Key:         d.Key,
			Description: d.Description,
			Options:     d.Options,
			Default:     d.Default,
		}
	}
	return out
}
