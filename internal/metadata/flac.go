package metadata

import (
	"errors"
	"time"

	"github.com/mewkiz/flac"
)

type streamInfo struct {
	duration time.Duration
}

// readFLACStreamInfo reads the STREAMINFO block, which is enough to derive
// the duration when taglib cannot read audio properties.
func readFLACStreamInfo(path string) (streamInfo, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return streamInfo{}, err
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return streamInfo{}, errors.New("flac stream info missing sample rate")
	}
	seconds := float64(info.NSamples) / float64(info.SampleRate)
	return streamInfo{duration: time.Duration(seconds * float64(time.Second))}, nil
}
