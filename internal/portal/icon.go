package portal

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// ChannelIcon downloads the PNG logo of a channel. Only the login step is
// needed; icon paths are not behind the token.
func (c *Client) ChannelIcon(ctx context.Context, id uint64) ([]byte, error) {
	base, hc, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	defer hc.CloseIdleConnections()

	rawURL := base + "/EPG/jsp/iptvsnmv3/en/list/images/channelIcon/" + strconv.FormatUint(id, 10) + ".png"
	body, err := c.get(ctx, hc, "icon", rawURL, ErrNotFound)
	if err != nil {
		return nil, err
	}
	if ct := http.DetectContentType(body); ct != "image/png" {
		return nil, newError(ErrNotFound, "icon", 0, fmt.Errorf("unexpected content type %s", ct))
	}
	return body, nil
}
