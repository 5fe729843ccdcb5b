package models

// Country — одна отслеживаемая конфигурация (страна назначения).
type Country struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}
