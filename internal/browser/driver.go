package browser

// Page — узкий контракт драйвера браузера, всё остальное ядро зависит
// только от него. Каждая операция может упасть и повторяется вызывающим.
type Page interface {
	URL() string
	Title() (string, error)
	InnerText(selector string) (string, error)
	// Query возвращает (nil, nil), если элемента нет.
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	Click(selector string) error
	Fill(selector, value string) error
	SelectOption(selector, label string) error
	Evaluate(script string) (any, error)
	Screenshot() ([]byte, error)
	Navigate(url string) error
	WaitForLoad() error
}

type Element interface {
	TextContent() (string, error)
	GetAttribute(name string) (string, error)
	IsVisible() (bool, error)
	Click() error
}
