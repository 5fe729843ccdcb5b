package services

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"visaradar/internal/models"
)

var ErrNoProxy = errors.New("no proxy available")

// ProxyService — пул исходящих идентичностей и их закрепление за странами.
// Пул заменяется целиком при refresh; назначение на страну стабильно
// до явной ротации.
type ProxyService struct {
	mu           sync.Mutex
	apiURL       string
	client       *http.Client
	countryOrder []string
	proxies      []models.Proxy
	countryIndex map[string]int
	usedProxies  map[string][]string
}

func NewProxyService(apiURL string, countryOrder []string) *ProxyService {
	return &ProxyService{
		apiURL:       apiURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		countryOrder: countryOrder,
		countryIndex: make(map[string]int),
		usedProxies:  make(map[string][]string),
	}
}

// Refresh атомарно заменяет пул списком из bulk-источника
// (строки host:port:username:password). Кривые строки пропускаются;
// пустой или неудачный ответ оставляет старый пул нетронутым.
func (s *ProxyService) Refresh() (int, error) {
	if s.apiURL == "" {
		return 0, fmt.Errorf("proxy api url is empty")
	}

	resp, err := s.client.Get(s.apiURL)
	if err != nil {
		return 0, fmt.Errorf("proxy fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("proxy fetch: status %d", resp.StatusCode)
	}

	fresh, err := ParseProxyList(resp.Body)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, fmt.Errorf("proxy fetch: empty list")
	}

	s.mu.Lock()
	s.proxies = fresh
	s.mu.Unlock()

	log.Printf("[proxy][refresh] fetched %d proxies", len(fresh))
	return len(fresh), nil
}

// ParseProxyList разбирает newline-формат host:port:username:password.
func ParseProxyList(r io.Reader) ([]models.Proxy, error) {
	var out []models.Proxy
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ":")
		if len(parts) < 4 {
			log.Printf("[proxy][parse] skipping malformed line: %s", line)
			continue
		}
		port, err := strconv.Atoi(parts[1])
		if err != nil {
			log.Printf("[proxy][parse] skipping bad port: %s", line)
			continue
		}
		out = append(out, models.Proxy{
			Host:     parts[0],
			Port:     port,
			Username: parts[2],
			Password: parts[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy list: %w", err)
	}
	return out, nil
}

// SetPool — прямая установка пула (для тестов и для inject-конфигураций).
func (s *ProxyService) SetPool(proxies []models.Proxy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proxies = proxies
}

// Assign — детерминированное и идемпотентное назначение: первая выдача
// считается от позиции страны в фиксированном порядке, дальше та же
// идентичность до явного Rotate.
func (s *ProxyService) Assign(countryCode string) (models.Proxy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.proxies) == 0 {
		return models.Proxy{}, ErrNoProxy
	}

	idx, ok := s.countryIndex[countryCode]
	if !ok {
		offset := 0
		for i, code := range s.countryOrder {
			if code == countryCode {
				offset = i
				break
			}
		}
		idx = offset % len(s.proxies)
		s.countryIndex[countryCode] = idx
		s.usedProxies[countryCode] = nil
	}
	return s.proxies[idx], nil
}

// Rotate запоминает текущую идентичность в истории и сдвигает индекс
// на следующий по кольцу.
func (s *ProxyService) Rotate(countryCode string) (models.Proxy, error) {
	s.mu.Lock()

	if len(s.proxies) == 0 {
		s.mu.Unlock()
		return models.Proxy{}, ErrNoProxy
	}

	idx, ok := s.countryIndex[countryCode]
	if !ok {
		s.mu.Unlock()
		return s.Assign(countryCode)
	}

	current := s.proxies[idx]
	s.usedProxies[countryCode] = append(s.usedProxies[countryCode], current.Addr())

	next := (idx + 1) % len(s.proxies)
	s.countryIndex[countryCode] = next
	proxy := s.proxies[next]
	s.mu.Unlock()

	log.Printf("[proxy][rotate] %s: %s -> %s", countryCode, current.Addr(), proxy.Addr())
	return proxy, nil
}

func (s *ProxyService) Reset(countryCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.countryIndex, countryCode)
	delete(s.usedProxies, countryCode)
}

func (s *ProxyService) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countryIndex = make(map[string]int)
	s.usedProxies = make(map[string][]string)
}

func (s *ProxyService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.proxies)
}

func (s *ProxyService) Stats() models.ProxyStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.ProxyStats{
		TotalProxies:       len(s.proxies),
		CountryAssignments: make(map[string]models.ProxyAssignment),
	}
	for code, idx := range s.countryIndex {
		assignment := models.ProxyAssignment{
			CurrentIndex: idx,
			UsedCount:    len(s.usedProxies[code]),
		}
		if idx < len(s.proxies) {
			assignment.CurrentProxy = s.proxies[idx].Addr()
		}
		stats.CountryAssignments[code] = assignment
	}
	return stats
}
