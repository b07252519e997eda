// SPDX-License-Identifier: MIT

package config

import "flag"

// Flags holds the command-line surface. Only flags the user actually set
// override lower layers.
type Flags struct {
	ConfigPath  string
	ShowVersion bool

	fs      *flag.FlagSet
	setters map[string]func(*AppConfig)
}

type stringFlag struct {
	long, short string
	usage       string
	set         func(*AppConfig, string)
}

var stringFlags = []stringFlag{
	{"user", "u", "subscriber user id", func(c *AppConfig, v string) { c.User = v }},
	{"passwd", "p", "subscriber password", func(c *AppConfig, v string) { c.Password = v }},
	{"mac", "m", "set-top box MAC address", func(c *AppConfig, v string) { c.MAC = v }},
	{"imei", "i", "device IMEI", func(c *AppConfig, v string) { c.IMEI = v }},
	{"bind", "b", "listen address", func(c *AppConfig, v string) { c.Bind = v }},
	{"address", "a", "client IP reported to the portal", func(c *AppConfig, v string) { c.Address = v }},
	{"interface", "I", "network interface used for portal and stream traffic", func(c *AppConfig, v string) { c.Interface = v }},
	{"extra-playlist", "", "URL of an M3U playlist appended to the generated one", func(c *AppConfig, v string) { c.ExtraPlaylist = v }},
	{"extra-xmltv", "", "URL of an XMLTV document merged into the generated one", func(c *AppConfig, v string) { c.ExtraXMLTV = v }},
	{"channel-mapping", "", "channel name remapping, e.g. \"A=B,C=D\"", func(c *AppConfig, v string) { c.ChannelMapping = v }},
}

type boolFlag struct {
	long  string
	usage string
	set   func(*AppConfig, bool)
}

var boolFlags = []boolFlag{
	{"udp-proxy", "serve multicast channels through /udp", func(c *AppConfig, v bool) { c.UDPProxy = v }},
	{"rtsp-proxy", "serve RTSP channels through /rtsp", func(c *AppConfig, v bool) { c.RTSPProxy = v }},
}

// RegisterFlags defines all flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, setters: make(map[string]func(*AppConfig))}
	fs.StringVar(&f.ConfigPath, "config", "", "path to YAML config file")
	fs.BoolVar(&f.ShowVersion, "version", false, "print version and exit")

	for _, sf := range stringFlags {
		v := new(string)
		fs.StringVar(v, sf.long, "", sf.usage)
		set := sf.set
		f.setters[sf.long] = func(c *AppConfig) { set(c, *v) }
		if sf.short != "" {
			fs.StringVar(v, sf.short, "", sf.usage+" (shorthand)")
			f.setters[sf.short] = f.setters[sf.long]
		}
	}
	for _, bf := range boolFlags {
		v := new(bool)
		fs.BoolVar(v, bf.long, false, bf.usage)
		set := bf.set
		f.setters[bf.long] = func(c *AppConfig) { set(c, *v) }
	}
	return f
}

// Apply copies explicitly set flags into cfg. Call after fs.Parse.
func (f *Flags) Apply(cfg *AppConfig) {
	f.fs.Visit(func(fl *flag.Flag) {
		if set, ok := f.setters[fl.Name]; ok {
			set(cfg)
		}
	})
}
