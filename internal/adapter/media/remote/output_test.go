package remote

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/logger"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

type recordingSink struct {
	mu       sync.Mutex
	clients  int
	fail     bool
	commands []Command
}

func (s *recordingSink) Broadcast(frameType string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("queue closed")
	}
	if frameType == CommandFrame {
		s.commands = append(s.commands, data.(Command))
	}
	return nil
}

func (s *recordingSink) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		out = append(out, c.Command)
	}
	return out
}

func track() domain.Track {
	return domain.Track{ID: "t1", Title: "Song", StreamURL: "https://stream.test/t1.mp3"}
}

func TestCommandSequence(t *testing.T) {
	sink := &recordingSink{clients: 1}
	out := NewOutput(logger.NewTestLogger(), sink)

	require.NoError(t, out.Load(track(), 1))
	require.NoError(t, out.Play())
	require.NoError(t, out.Seek(12.5))
	require.NoError(t, out.SetVolume(0.25))
	require.NoError(t, out.Pause())
	require.NoError(t, out.Stop())
	require.NoError(t, out.Stop(), "stopping twice is a no-op")

	assert.Equal(t, []string{CommandLoad, CommandPlay, CommandSeek, CommandVolume, CommandPause, CommandStop}, sink.names())
	assert.Equal(t, "https://stream.test/t1.mp3", sink.commands[0].URL)
	assert.Equal(t, 12.5, sink.commands[2].Position)
	assert.Equal(t, 0.25, sink.commands[3].Volume)

	_, ok := out.Current()
	assert.False(t, ok)
}

func TestPlayWithoutClientsIsRejected(t *testing.T) {
	out := NewOutput(logger.NewTestLogger(), &recordingSink{})

	require.NoError(t, out.Load(track(), 2))
	err := out.Play()
	assert.ErrorIs(t, err, domain.ErrPlaybackRejected)
}

func TestCommandsRequireSource(t *testing.T) {
	out := NewOutput(logger.NewTestLogger(), &recordingSink{clients: 1})

	assert.ErrorIs(t, out.Play(), domain.ErrNoTrackLoaded)
	assert.ErrorIs(t, out.Pause(), domain.ErrNoTrackLoaded)
	assert.ErrorIs(t, out.Seek(1), domain.ErrNoTrackLoaded)
	assert.ErrorIs(t, out.Load(domain.Track{ID: "x"}, 3), domain.ErrNoTrackLoaded)
	assert.ErrorIs(t, out.SetVolume(1.5), domain.ErrInvalidVolume)
}

func TestSeekBoundedByReportedDuration(t *testing.T) {
	out := NewOutput(logger.NewTestLogger(), &recordingSink{clients: 1})
	require.NoError(t, out.Load(track(), 4))

	assert.ErrorIs(t, out.Seek(-1), domain.ErrInvalidPosition)
	require.NoError(t, out.Seek(500), "unknown duration does not bound seeks")

	out.Deliver(ports.MediaMessage{Kind: ports.MediaMetadata, TrackID: "t1", Duration: 200})
	assert.ErrorIs(t, out.Seek(500), domain.ErrInvalidPosition)
	assert.NoError(t, out.Seek(199))
}

func TestDeliverFeedsMessages(t *testing.T) {
	out := NewOutput(logger.NewTestLogger(), &recordingSink{clients: 1})

	out.Deliver(ports.MediaMessage{Kind: ports.MediaClock, TrackID: "t1", Time: 3})
	msg := <-out.Messages()
	assert.Equal(t, ports.MediaClock, msg.Kind)
	assert.Equal(t, 3.0, msg.Time)

	for i := 0; i < messageBuffer+10; i++ {
		out.Deliver(ports.MediaMessage{Kind: ports.MediaClock})
	}
	assert.Len(t, out.Messages(), messageBuffer, "overflow is dropped, not blocked on")
}

func TestSendFailureIsMediaError(t *testing.T) {
	out := NewOutput(logger.NewTestLogger(), &recordingSink{clients: 1, fail: true})

	err := out.Load(track(), 5)
	var mErr *domain.MediaError
	assert.ErrorAs(t, err, &mErr)
	_, ok := out.Current()
	assert.False(t, ok)
}

func TestCommandsCarryLoadToken(t *testing.T) {
	sink := &recordingSink{clients: 1}
	out := NewOutput(logger.NewTestLogger(), sink)

	require.NoError(t, out.Load(track(), 7))
	require.NoError(t, out.Play())
	require.NoError(t, out.Seek(4))
	require.NoError(t, out.Stop())

	for _, cmd := range sink.commands {
		assert.Equal(t, uint64(7), cmd.Token, cmd.Command)
	}
}

func TestMetadataFromEarlierLoadIgnored(t *testing.T) {
	out := NewOutput(logger.NewTestLogger(), &recordingSink{clients: 1})
	require.NoError(t, out.Load(track(), 1))
	require.NoError(t, out.Load(track(), 2))

	out.Deliver(ports.MediaMessage{Kind: ports.MediaMetadata, TrackID: "t1", Token: 1, Duration: 10})
	assert.NoError(t, out.Seek(50), "duration from the first load must not bound the second")

	out.Deliver(ports.MediaMessage{Kind: ports.MediaMetadata, TrackID: "t1", Token: 2, Duration: 10})
	assert.ErrorIs(t, out.Seek(50), domain.ErrInvalidPosition)
}
