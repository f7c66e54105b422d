// Package automation выполняет действия от имени аккаунтов в настоящем браузере:
// логин, лайк, комментарий, репост.
//
// Браузер спрятан за интерфейсами Launcher/Browser/Page. В проде это go-rod
// (rod.go), в тестах — фейки.
package automation

import (
	"context"
	"time"
)

// Launcher запускает новый браузер. Один браузер — один аккаунт.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser — долгоживущий экземпляр браузера аккаунта.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page — короткоживущая вкладка. Закрывается после каждого действия.
type Page interface {
	// Navigate открывает url и ждёт загрузки страницы не дольше timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	SetCookies(cookies []Cookie) error
	Cookies() ([]Cookie, error)
	// Has сообщает, есть ли элемент на странице прямо сейчас (без ожидания).
	Has(selector string) (bool, error)
	// Click ждёт элемент не дольше timeout и кликает по нему.
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// Input дописывает text в поле ввода.
	Input(ctx context.Context, selector, text string, timeout time.Duration) error
	// Scroll прокручивает страницу по вертикали на dy пикселей.
	Scroll(dy float64) error
	Close() error
}

// Cookie — cookie браузера в нейтральном формате.
// Совпадает по полям с тем, что отдают расширения-экспортёры cookies.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}
