package steam

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/andygrunwald/vdf"
)

// Manifest is the parsed content of a workshop manifest (appworkshop_<appid>.acf).
type Manifest struct {
	AppID      AppID
	Subscribed []PublishedFileID
	Installed  map[PublishedFileID]InstallInfo
}

// ManifestPath returns the manifest location for app under a steamapps directory.
func ManifestPath(libraryPath string, app AppID) string {
	return filepath.Join(libraryPath, "workshop", fmt.Sprintf("appworkshop_%d.acf", app))
}

// ContentPath returns the install folder for an item.
func ContentPath(libraryPath string, app AppID, id PublishedFileID) string {
	return filepath.Join(libraryPath, "workshop", "content", strconv.FormatUint(uint64(app), 10), id.String())
}

// ReadManifest opens and parses the manifest for app under libraryPath.
func ReadManifest(libraryPath string, app AppID) (*Manifest, error) {
	f, err := os.Open(ManifestPath(libraryPath, app))
	if err != nil {
		return nil, fmt.Errorf("failed to open workshop manifest: %w", err)
	}
	defer f.Close()

	m, err := ParseManifest(f)
	if err != nil {
		return nil, err
	}
	for id, info := range m.Installed {
		info.Folder = ContentPath(libraryPath, app, id)
		m.Installed[id] = info
	}
	return m, nil
}

// ParseManifest decodes the VDF text of a workshop manifest.
//
// Subscribed items are the keys of WorkshopItemDetails, falling back to WorkshopItemsInstalled
// for manifests that lack the details block. The list is sorted by id.
func ParseManifest(r io.Reader) (*Manifest, error) {
	data, err := vdf.NewParser(r).Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse workshop manifest: %w", err)
	}

	root, ok := data["AppWorkshop"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse workshop manifest: missing AppWorkshop section")
	}

	m := &Manifest{Installed: make(map[PublishedFileID]InstallInfo)}
	if v, ok := root["appid"].(string); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			m.AppID = AppID(n)
		}
	}

	if installed, ok := root["WorkshopItemsInstalled"].(map[string]any); ok {
		for key, raw := range installed {
			id, err := strconv.ParseUint(key, 10, 64)
			if err != nil {
				continue
			}
			fields, _ := raw.(map[string]any)
			m.Installed[PublishedFileID(id)] = InstallInfo{
				SizeOnDisk: uintField(fields, "size"),
				TimeStamp:  unixField(fields, "timeupdated"),
			}
		}
	}

	details, ok := root["WorkshopItemDetails"].(map[string]any)
	if !ok {
		details, _ = root["WorkshopItemsInstalled"].(map[string]any)
	}
	for key := range details {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		m.Subscribed = append(m.Subscribed, PublishedFileID(id))
	}
	sort.Slice(m.Subscribed, func(i, j int) bool { return m.Subscribed[i] < m.Subscribed[j] })

	return m, nil
}

func uintField(fields map[string]any, key string) uint64 {
	v, _ := fields[key].(string)
	n, _ := strconv.ParseUint(v, 10, 64)
	return n
}

func unixField(fields map[string]any, key string) time.Time {
	n := uintField(fields, key)
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(int64(n), 0).UTC()
}
