package models

import "fmt"

// Proxy — исходящая сетевая идентичность. Неизменяема после загрузки пула.
type Proxy struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
}

func (p Proxy) URL() string {
	return fmt.Sprintf("http://%s:%s@%s:%d", p.Username, p.Password, p.Host, p.Port)
}

func (p Proxy) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

type ProxyAssignment struct {
	CurrentIndex int    `json:"current_index"`
	CurrentProxy string `json:"current_proxy"`
	UsedCount    int    `json:"used_count"`
}

type ProxyStats struct {
	TotalProxies       int                        `json:"total_proxies"`
	CountryAssignments map[string]ProxyAssignment `json:"country_assignments"`
}
