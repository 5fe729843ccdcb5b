package services

import (
	"strings"

	"visaradar/internal/browser"
)

// fakeElement реализует browser.Element для тестов.
type fakeElement struct {
	text    string
	attrs   map[string]string
	visible bool
	clicked int
}

func (e *fakeElement) TextContent() (string, error) { return e.text, nil }

func (e *fakeElement) GetAttribute(name string) (string, error) {
	return e.attrs[name], nil
}

func (e *fakeElement) IsVisible() (bool, error) { return e.visible, nil }

func (e *fakeElement) Click() error {
	e.clicked++
	return nil
}

// fakePage — страница из заранее заданных селекторов.
// Query матчит по точному селектору либо по любой из запятых в запросе.
type fakePage struct {
	url      string
	title    string
	bodyText string
	elements map[string][]*fakeElement
	filled   map[string]string
	clicked  []string
}

func newFakePage(url, title string) *fakePage {
	return &fakePage{
		url:      url,
		title:    title,
		elements: make(map[string][]*fakeElement),
		filled:   make(map[string]string),
	}
}

func (p *fakePage) addElement(selector string, el *fakeElement) {
	p.elements[selector] = append(p.elements[selector], el)
}

func (p *fakePage) lookup(selector string) []*fakeElement {
	if els, ok := p.elements[selector]; ok {
		return els
	}
	// составной селектор: достаточно совпадения одной части
	var out []*fakeElement
	for _, part := range strings.Split(selector, ",") {
		if els, ok := p.elements[strings.TrimSpace(part)]; ok {
			out = append(out, els...)
		}
	}
	return out
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Title() (string, error) { return p.title, nil }

func (p *fakePage) InnerText(selector string) (string, error) {
	if selector == "body" {
		return p.bodyText, nil
	}
	if els := p.lookup(selector); len(els) > 0 {
		return els[0].text, nil
	}
	return "", nil
}

func (p *fakePage) Query(selector string) (browser.Element, error) {
	els := p.lookup(selector)
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (p *fakePage) QueryAll(selector string) ([]browser.Element, error) {
	els := p.lookup(selector)
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (p *fakePage) Click(selector string) error {
	p.clicked = append(p.clicked, selector)
	return nil
}

func (p *fakePage) Fill(selector, value string) error {
	p.filled[selector] = value
	return nil
}

func (p *fakePage) SelectOption(selector, label string) error { return nil }

func (p *fakePage) Evaluate(script string) (any, error) { return nil, nil }

func (p *fakePage) Screenshot() ([]byte, error) { return []byte("png"), nil }

func (p *fakePage) Navigate(url string) error {
	p.url = url
	return nil
}

func (p *fakePage) WaitForLoad() error { return nil }
