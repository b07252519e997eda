package portal

import "strings"

const (
	rtspScheme = "rtsp://"
	igmpScheme = "igmp://"
)

// RewriteRTSP turns an upstream RTSP locator into the URL players use.
// With RTSP proxying the scheme is replaced by the proxy's /rtsp/ route;
// the upstream authority stays in the path. The portal's UTC zone offset is
// always replaced with UTC+8 so catch-up seeks line up with local time.
func (e Endpoint) RewriteRTSP(loc string) string {
	if e.ProxyRTSP && strings.HasPrefix(loc, rtspScheme) {
		loc = e.prefix("rtsp") + strings.TrimPrefix(loc, rtspScheme)
	}
	return strings.ReplaceAll(loc, "zoneoffset=0", "zoneoffset=480")
}

// RewriteIGMP turns an upstream igmp:// locator into a /udp/ proxy URL when
// UDP proxying is enabled.
func (e Endpoint) RewriteIGMP(loc string) string {
	if e.ProxyUDP && strings.HasPrefix(loc, igmpScheme) {
		return e.prefix("udp") + strings.TrimPrefix(loc, igmpScheme)
	}
	return loc
}

func (e Endpoint) prefix(route string) string {
	scheme := e.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + e.Host + "/" + route + "/"
}
