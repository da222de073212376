package logger

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CollectionConfig bounds the in-memory aggregation window.
type CollectionConfig struct {
	MaxEntries int           // max unique entries retained (oldest evicted first)
	MaxAge     time.Duration // entries older than this are dropped on Snapshot
}

// AggregatedLogEntry is one deduplicated warn/error record.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector aggregates warn/error logs in memory so the diagnostics
// endpoint can report recent failures without log scraping.
type LogCollector struct {
	config *CollectionConfig
	logMap map[string]*AggregatedLogEntry
	mutex  sync.RWMutex
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 200
	}
	if config.MaxAge <= 0 {
		config.MaxAge = time.Hour
	}
	return &LogCollector{
		config: config,
		logMap: make(map[string]*AggregatedLogEntry),
	}
}

func (d *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := d.generateKey(level, message, fields, caller)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if entry, exists := d.logMap[key]; exists {
		entry.Count++
		entry.LastSeen = now
		return
	}

	if len(d.logMap) >= d.config.MaxEntries {
		d.evictOldest()
	}

	d.logMap[key] = &AggregatedLogEntry{
		Level:     level,
		Message:   message,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
}

func (d *LogCollector) generateKey(level, message string, fields map[string]interface{}, caller string) string {
	// Create a consistent hash from level + message + fields + caller
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{
		Level:   level,
		Message: message,
		Fields:  fields,
		Caller:  caller,
	}

	jsonData, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonData)
	return fmt.Sprintf("%x", hash)
}

func (d *LogCollector) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range d.logMap {
		if oldestKey == "" || entry.LastSeen.Before(oldest) {
			oldestKey = key
			oldest = entry.LastSeen
		}
	}
	if oldestKey != "" {
		delete(d.logMap, oldestKey)
	}
}

// Snapshot returns retained entries ordered by last occurrence, newest first.
// Entries past MaxAge are dropped.
func (d *LogCollector) Snapshot() []AggregatedLogEntry {
	cutoff := time.Now().Add(-d.config.MaxAge)

	d.mutex.Lock()
	logs := make([]AggregatedLogEntry, 0, len(d.logMap))
	for key, entry := range d.logMap {
		if entry.LastSeen.Before(cutoff) {
			delete(d.logMap, key)
			continue
		}
		logs = append(logs, *entry)
	}
	d.mutex.Unlock()

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].LastSeen.After(logs[j].LastSeen)
	})
	return logs
}

// Reset clears all retained entries.
func (d *LogCollector) Reset() {
	d.mutex.Lock()
	d.logMap = make(map[string]*AggregatedLogEntry)
	d.mutex.Unlock()
}
