package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

func newAudioContext() (*malgo.AllocatedContext, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("malgo InitContext failed: %w", err)
	}

	return audioCtx, nil
}

func freeAudioContext(audioCtx *malgo.AllocatedContext) {
	if audioCtx == nil {
		return
	}
	_ = audioCtx.Uninit()
	audioCtx.Free()
}
