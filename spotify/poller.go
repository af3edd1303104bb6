package spotify

import (
	"context"

	"github.com/onnwee/musicnerd/session"
)

// Poller adapts Client to the session engine's TrackPoller interface.
type Poller struct {
	Client *Client
}

func (p *Poller) CurrentTrack(ctx context.Context, userID string) (*session.Track, error) {
	np, err := p.Client.CurrentTrack(ctx, userID)
	if err != nil || np == nil {
		return nil, err
	}
	return &session.Track{ID: np.TrackID, Title: np.Title, Artist: np.Artist}, nil
}
