package jobs

import (
	"context"
	"sync"

	"github.com/ManuGH/iptvproxy/internal/portal"
)

// fakeSource serves a fixed catalog, rewriting locators like the portal does.
type fakeSource struct {
	mu        sync.Mutex
	channels  []portal.Channel
	err       error
	calls     int
	gate      chan struct{}
	lastEP    portal.Endpoint
	lastGuide bool
}

func (f *fakeSource) FetchChannels(_ context.Context, ep portal.Endpoint, withGuide bool) ([]portal.Channel, error) {
	f.mu.Lock()
	f.calls++
	f.lastEP = ep
	f.lastGuide = withGuide
	gate, err := f.gate, f.err
	channels := append([]portal.Channel(nil), f.channels...)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	for i := range channels {
		channels[i].RTSP = ep.RewriteRTSP(channels[i].RTSP)
		if channels[i].IGMP != "" {
			channels[i].IGMP = ep.RewriteIGMP(channels[i].IGMP)
		}
		if !withGuide {
			channels[i].Programs = nil
		}
	}
	return channels, nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sampleCatalog() []portal.Channel {
	return []portal.Channel{
		{
			ID: 101, Name: "CCTV-1高清", Category: portal.CategoryHD,
			RTSP: "rtsp://10.1.1.1:554/PLTV/1.smil?zoneoffset=0",
			IGMP: "igmp://239.3.1.1:8000",
			Programs: []portal.Program{
				{Start: 1_735_689_600_000, Stop: 1_735_693_200_000, Title: "新闻联播", Desc: "新闻联播"},
			},
		},
		{
			ID: 102, Name: "CCTV1 Backup", Category: portal.CategoryStandard,
			RTSP: "rtsp://10.1.1.1:554/PLTV/2.smil",
		},
	}
}

type fakeIcons struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeIcons) ChannelIcon(context.Context, uint64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return portal.MockPNG(), nil
}
