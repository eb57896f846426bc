package builtins

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/goodsign/monday"
	"github.com/ncruces/go-strftime"

	perrors "github.com/metaplate/metaplate/pkg/mtl/errors"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// DateProvider resolves the file date fields {created}, {modified},
// {accessed} and the clock fields {today} and {now}. {today} captures its
// timestamp on first use within a render and returns the same value for the
// rest of the render; {now} is fresh on every evaluation.
type DateProvider struct{}

func (DateProvider) Namespaces() []string {
	return []string{"created", "modified", "accessed", "today", "now"}
}

func (DateProvider) Resolve(req *provider.Request) ([]string, bool, error) {
	var t time.Time
	switch req.Namespace {
	case "today":
		t = req.Ctx.StickyNow()
	case "now":
		t = req.Ctx.Now()
	default:
		info, err := os.Stat(req.File.Path())
		if err != nil {
			return nil, false, err
		}
		switch req.Namespace {
		case "modified":
			t = info.ModTime()
		default:
			stat, ok := info.Sys().(*syscall.Stat_t)
			if !ok {
				t = info.ModTime()
				break
			}
			if req.Namespace == "accessed" {
				t = time.Unix(stat.Atim.Sec, stat.Atim.Nsec)
			} else {
				// Unix exposes no birth time through Stat_t; the inode
				// change time is the closest available stand-in.
				t = time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
			}
		}
	}

	values, err := FormatDateAttributes(t, req)
	if err != nil {
		return nil, false, err
	}
	return values, true, nil
}

// FormatDateAttributes renders a timestamp through the shared date
// attribute set {date, year, yy, month, mon, mm, dd, dow, doy, hour, min,
// sec, strftime}. Date-valued fields in any namespace route through here so
// the attributes behave identically everywhere. With no attribute the full
// ISO 8601 timestamp is rendered. strftime consumes the statement's default
// sub-template as its format string.
func FormatDateAttributes(t time.Time, req *provider.Request) ([]string, error) {
	if len(req.Attributes) == 0 {
		return []string{t.Format("2006-01-02T15:04:05")}, nil
	}
	if len(req.Attributes) > 1 {
		return nil, perrors.NewUnknownField(req.Namespace, joinAttrs(req.Attributes))
	}

	locale := mondayLocale(req.Ctx.Locale)
	switch attr := req.Attributes[0]; attr {
	case "date":
		return []string{t.Format("2006-01-02")}, nil
	case "year":
		return []string{fmt.Sprintf("%04d", t.Year())}, nil
	case "yy":
		return []string{fmt.Sprintf("%02d", t.Year()%100)}, nil
	case "month":
		return []string{monday.Format(t, "January", locale)}, nil
	case "mon":
		return []string{monday.Format(t, "Jan", locale)}, nil
	case "mm":
		return []string{fmt.Sprintf("%02d", int(t.Month()))}, nil
	case "dd":
		return []string{fmt.Sprintf("%02d", t.Day())}, nil
	case "dow":
		return []string{monday.Format(t, "Monday", locale)}, nil
	case "doy":
		return []string{fmt.Sprintf("%03d", t.YearDay())}, nil
	case "hour":
		return []string{fmt.Sprintf("%02d", t.Hour())}, nil
	case "min":
		return []string{fmt.Sprintf("%02d", t.Minute())}, nil
	case "sec":
		return []string{fmt.Sprintf("%02d", t.Second())}, nil
	case "strftime":
		if req.Default == nil {
			return nil, nil
		}
		formats, err := req.EvalDefault()
		if err != nil {
			return nil, err
		}
		out := make([]string, len(formats))
		for i, format := range formats {
			out[i] = strftime.Format(format, t)
		}
		return out, nil
	default:
		return nil, perrors.NewUnknownField(req.Namespace, attr)
	}
}

func joinAttrs(attrs []string) string {
	out := ""
	for i, a := range attrs {
		if i > 0 {
			out += "."
		}
		out += a
	}
	return out
}

// mondayLocale maps a locale string to a monday.Locale for month and
// weekday names, falling back to US English.
func mondayLocale(locale string) monday.Locale {
	switch locale {
	case "", "en", "en_US", "en_us":
		return monday.LocaleEnUS
	case "en_GB", "en_gb":
		return monday.LocaleEnGB
	case "fr", "fr_FR", "fr_fr":
		return monday.LocaleFrFR
	case "de", "de_DE", "de_de":
		return monday.LocaleDeDE
	case "es", "es_ES", "es_es":
		return monday.LocaleEsES
	case "it", "it_IT", "it_it":
		return monday.LocaleItIT
	case "nl", "nl_NL", "nl_nl":
		return monday.LocaleNlNL
	case "pt", "pt_PT", "pt_pt":
		return monday.LocalePtPT
	case "pt_BR", "pt_br":
		return monday.LocalePtBR
	case "ja", "ja_JP", "ja_jp":
		return monday.LocaleJaJP
	default:
		return monday.LocaleEnUS
	}
}
