package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

// HTTP talks to the external room CRUD service.
//
//	GET    {base}/voice-channels/{id} -> {"id","name","maxUsers","bitrate","isTemporary"}
//	DELETE {base}/voice-channels/{id}
type HTTP struct {
	base   string
	client *http.Client
}

func NewHTTP(base string, timeout time.Duration) *HTTP {
	return &HTTP{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *HTTP) Lookup(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url(id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("room lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrRoomNotFound
	default:
		return nil, fmt.Errorf("room lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		MaxUsers    int    `json:"maxUsers"`
		Bitrate     int    `json:"bitrate"`
		IsTemporary bool   `json:"isTemporary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("room lookup: decode: %w", err)
	}
	return domain.NewRoom(domain.RoomID(body.ID), body.Name, body.MaxUsers, body.Bitrate, body.IsTemporary)
}

func (d *HTTP) Delete(ctx context.Context, id domain.RoomID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, d.url(id), nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("room delete: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("room delete: unexpected status %d", resp.StatusCode)
	}
	log.Info().Str("module", "directory").Str("room", string(id)).Msg("room deleted upstream")
	return nil
}

func (d *HTTP) url(id domain.RoomID) string {
	return fmt.Sprintf("%s/voice-channels/%s", d.base, id)
}
