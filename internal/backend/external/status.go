package external

import (
	"encoding/xml"
	"strings"
	"time"
)

// Status mirrors VLC's /requests/status.xml.
type Status struct {
	XMLName     xml.Name    `xml:"root"`
	State       string      `xml:"state"`
	Time        int64       `xml:"time"`
	Length      int64       `xml:"length"`
	Volume      int         `xml:"volume"`
	Fullscreen  string      `xml:"fullscreen"`
	Information Information `xml:"information"`
}

type Information struct {
	Categories []Category `xml:"category"`
}

type Category struct {
	Name  string `xml:"name,attr"`
	Infos []Info `xml:"info"`
}

type Info struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

func (i Information) Lookup(category, name string) (string, bool) {
	for _, c := range i.Categories {
		if c.Name != category {
			continue
		}
		for _, info := range c.Infos {
			if info.Name == name {
				return strings.TrimSpace(info.Value), true
			}
		}
	}
	return "", false
}

func (s Status) Playing() bool {
	return s.State == "playing"
}

func (s Status) Stopped() bool {
	return s.State == "stopped"
}

func (s Status) IsFullscreen() bool {
	return s.Fullscreen == "true" || s.Fullscreen == "1"
}

func (s Status) Position() time.Duration {
	return time.Duration(s.Time) * time.Second
}

func (s Status) Duration() time.Duration {
	return time.Duration(s.Length) * time.Second
}

// Title prefers the stream's own title over its file name.
func (s Status) Title() string {
	if v, ok := s.Information.Lookup("meta", "title"); ok && v != "" {
		return v
	}
	v, _ := s.Information.Lookup("meta", "filename")
	return v
}
