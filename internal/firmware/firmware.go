package firmware

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/muurk/hcishell/internal/memory"
)

//go:embed firmwares/firmwares.yaml
var firmwaresYAML []byte

// Firmware describes one controller firmware build.
type Firmware struct {
	// Name is the catalog name (e.g., "BCM4345C0")
	Name string `yaml:"name"`

	// Subversion is the LMP subversion reported by the controller
	Subversion uint16 `yaml:"subversion"`

	// Chip is the controller part number
	Chip string `yaml:"chip"`

	// Description provides details about this firmware
	Description string `yaml:"description"`

	// Verified indicates whether the section table has been tested on hardware
	Verified bool `yaml:"verified"`

	// Sections is the memory map of the controller
	Sections []memory.Section `yaml:"sections"`

	// Constants holds named addresses and sizes for this build
	Constants map[string]uint32 `yaml:"constants"`

	// Notes contains additional information about this firmware
	Notes string `yaml:"notes"`

	table *memory.Table
}

// Table returns the validated section table.
func (f *Firmware) Table() *memory.Table {
	return f.table
}

// Constant returns a named constant.
func (f *Firmware) Constant(name string) (uint32, bool) {
	v, ok := f.Constants[name]
	return v, ok
}

// ConstantNames returns the constant names in sorted order.
func (f *Firmware) ConstantNames() []string {
	names := make([]string, 0, len(f.Constants))
	for name := range f.Constants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns a human-readable representation of the firmware.
func (f *Firmware) String() string {
	verifiedStr := ""
	if f.Verified {
		verifiedStr = " (verified)"
	}
	return fmt.Sprintf("%s (lmp subversion 0x%04x)%s", f.Name, f.Subversion, verifiedStr)
}

// Catalog holds all known firmwares.
type Catalog struct {
	firmwares    []*Firmware
	bySubversion map[uint16]*Firmware
	byName       map[string]*Firmware
	mu           sync.RWMutex
}

type catalogFile struct {
	Firmwares []*Firmware `yaml:"firmwares"`
}

var (
	globalCatalog     *Catalog
	globalCatalogOnce sync.Once
	globalCatalogErr  error
)

// Load returns the embedded catalog. It is parsed only once.
func Load() (*Catalog, error) {
	globalCatalogOnce.Do(func() {
		globalCatalog, globalCatalogErr = Parse(firmwaresYAML)
	})
	return globalCatalog, globalCatalogErr
}

// LoadFile returns the embedded catalog merged with the entries in path.
// Entries from the file replace embedded entries with the same subversion.
func LoadFile(path string) (*Catalog, error) {
	base, err := Load()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware catalog %s: %w", path, err)
	}
	extra, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	merged := newCatalog()
	for _, fw := range base.List() {
		merged.add(fw)
	}
	for _, fw := range extra.List() {
		merged.add(fw)
	}
	return merged, nil
}

// Parse decodes a YAML catalog and validates every section table.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse firmware catalog: %w", err)
	}

	cat := newCatalog()
	for i, fw := range file.Firmwares {
		if fw == nil || fw.Name == "" {
			return nil, fmt.Errorf("firmware entry %d has no name", i)
		}
		table, err := memory.NewTable(fw.Sections)
		if err != nil {
			return nil, fmt.Errorf("firmware %s: %w", fw.Name, err)
		}
		fw.table = table
		cat.add(fw)
	}
	return cat, nil
}

func newCatalog() *Catalog {
	return &Catalog{
		bySubversion: make(map[uint16]*Firmware),
		byName:       make(map[string]*Firmware),
	}
}

func (c *Catalog) add(fw *Firmware) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.bySubversion[fw.Subversion]; ok {
		for i, existing := range c.firmwares {
			if existing == old {
				c.firmwares = append(c.firmwares[:i], c.firmwares[i+1:]...)
				break
			}
		}
		delete(c.byName, old.Name)
	}
	c.firmwares = append(c.firmwares, fw)
	c.bySubversion[fw.Subversion] = fw
	c.byName[fw.Name] = fw
}

// Lookup returns the firmware with the given LMP subversion.
func (c *Catalog) Lookup(subversion uint16) (*Firmware, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fw, ok := c.bySubversion[subversion]
	return fw, ok
}

// Get returns the firmware with the given name.
func (c *Catalog) Get(name string) (*Firmware, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fw, ok := c.byName[name]
	return fw, ok
}

// List returns all firmwares in catalog order.
func (c *Catalog) List() []*Firmware {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Firmware, len(c.firmwares))
	copy(out, c.firmwares)
	return out
}

// Names returns every firmware name, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of firmwares in the catalog.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.firmwares)
}

// Identify resolves a subversion or returns an UnsupportedFirmwareError.
func (c *Catalog) Identify(subversion uint16) (*Firmware, error) {
	if fw, ok := c.Lookup(subversion); ok {
		return fw, nil
	}
	return nil, &UnsupportedFirmwareError{Subversion: subversion, Available: c.List()}
}
