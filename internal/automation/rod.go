package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher запускает локальный Chromium через go-rod.
type RodLauncher struct {
	Headless bool
	Bin      string // Пусто — rod сам найдёт или скачает браузер
}

// Launch запускает отдельный процесс браузера и подключается к нему.
// Браузер живёт дольше ctx вызова, поэтому контекст к нему не привязывается.
func (l RodLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ln := launcher.New().
		Headless(l.Headless).
		NoSandbox(true).
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("disable-gpu")).
		Set(flags.Flag("no-first-run"))
	if l.Bin != "" {
		ln = ln.Bin(l.Bin)
	}

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("запуск браузера: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		return nil, fmt.Errorf("подключение к браузеру: %w", err)
	}
	return &rodBrowser{browser: browser, launcher: ln}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("создание вкладки: %w", err)
	}
	return &rodPage{page: page}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page := p.page.Context(ctx).Timeout(timeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("переход на %s: %w", url, err)
	}
	return page.WaitLoad()
}

func (p *rodPage) SetCookies(cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	return p.page.SetCookies(params)
}

func (p *rodPage) Cookies() ([]Cookie, error) {
	raw, err := p.page.Cookies(nil)
	if err != nil {
		return nil, err
	}
	out := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out, nil
}

func (p *rodPage) Has(selector string) (bool, error) {
	has, _, err := p.page.Has(selector)
	return has, err
}

func (p *rodPage) element(ctx context.Context, selector string, timeout time.Duration) (*rod.Element, error) {
	el, err := p.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("элемент %q не найден: %w", selector, err)
	}
	return el, nil
}

func (p *rodPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := p.element(ctx, selector, timeout)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) Input(ctx context.Context, selector, text string, timeout time.Duration) error {
	el, err := p.element(ctx, selector, timeout)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (p *rodPage) Scroll(dy float64) error {
	return p.page.Mouse.Scroll(0, dy, 4)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
