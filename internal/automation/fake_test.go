package automation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeLauncher считает запущенные и закрытые браузеры.
type fakeLauncher struct {
	mu       sync.Mutex
	launched int
	browsers []*fakeBrowser
	page     func() *fakePage
	err      error
}

func (l *fakeLauncher) Launch(_ context.Context) (Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.launched++
	b := &fakeBrowser{launcher: l}
	l.browsers = append(l.browsers, b)
	return b, nil
}

func (l *fakeLauncher) openBrowsers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, b := range l.browsers {
		if !b.closed {
			n++
		}
	}
	return n
}

type fakeBrowser struct {
	launcher *fakeLauncher
	closed   bool
	pages    []*fakePage
}

func (b *fakeBrowser) NewPage(_ context.Context) (Page, error) {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	p := &fakePage{present: map[string]bool{}}
	if b.launcher.page != nil {
		p = b.launcher.page()
	}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) Close() error {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	b.closed = true
	return nil
}

// fakePage ведёт журнал вызовов. present — какие селекторы «есть» на странице,
// clickAdds — какие селекторы появляются после клика по ключу.
type fakePage struct {
	present   map[string]bool
	clickAdds map[string]string
	failClick map[string]bool
	panicOn   string
	navErr    error

	calls   []string
	typed   map[string]string
	cookies []Cookie
	set     []Cookie
	closed  int
}

var errNoElement = errors.New("element not found")

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.calls = append(p.calls, "nav:"+url)
	return p.navErr
}

func (p *fakePage) SetCookies(cookies []Cookie) error {
	p.set = append(p.set, cookies...)
	return nil
}

func (p *fakePage) Cookies() ([]Cookie, error) { return p.cookies, nil }

func (p *fakePage) Has(selector string) (bool, error) {
	return p.present[selector], nil
}

func (p *fakePage) Click(_ context.Context, selector string, _ time.Duration) error {
	if selector == p.panicOn {
		panic("boom")
	}
	p.calls = append(p.calls, "click:"+selector)
	if p.failClick[selector] || !p.present[selector] {
		return errNoElement
	}
	if add, ok := p.clickAdds[selector]; ok {
		p.present[add] = true
	}
	return nil
}

func (p *fakePage) Input(_ context.Context, selector, text string, _ time.Duration) error {
	if !p.present[selector] {
		return errNoElement
	}
	if p.typed == nil {
		p.typed = map[string]string{}
	}
	p.typed[selector] += text
	return nil
}

func (p *fakePage) Scroll(_ float64) error {
	p.calls = append(p.calls, "scroll")
	return nil
}

func (p *fakePage) Close() error {
	p.closed++
	return nil
}

// recordingDelay копит запрошенные паузы без реального сна.
type recordingDelay struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (d *recordingDelay) Delay(ctx context.Context, w time.Duration) error {
	d.mu.Lock()
	d.waits = append(d.waits, w)
	d.mu.Unlock()
	return ctx.Err()
}
