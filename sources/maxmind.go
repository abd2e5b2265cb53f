package sources

import (
	"archive/zip"
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
)

const (
	// RedistLicenseKey switches MaxMind source to the redistributed
	// copy of GeoLite2 on GitHub which does not need a license.
	RedistLicenseKey = "redist"

	DefaultSeries  = "GeoLite2"
	DefaultEdition = "City"

	maxmindURL = "https://download.maxmind.com/app/geoip_download"
	redistURL  = "https://raw.githubusercontent.com/sapics/node-geolite2-redist/master/redist/"

	suffixArchive  = "zip"
	suffixChecksum = "zip.sha256"
)

var maxmindChecksumRegexp = regexp.MustCompile(`(?i)[a-f0-9]{64}`)

// MaxMind downloads CSV archive of GeoLite2 or GeoIP2 databases.
type MaxMind struct {
	Fs         afero.Fs
	HTTPClient geolib.HTTPClient
	LicenseKey string

	// Series is GeoLite2 or GeoIP2.
	Series string

	// Edition is City or Country.
	Edition string

	// Language adds localized location names to extracted files.
	Language string

	// Force downloads an archive even if checksum has not changed.
	Force bool
}

// Fetch downloads an archive into dir and extracts CSV files next to
// it. It returns ErrNothingToDo if a checksum of the archive matches
// the checksum of the last extracted one.
func (m MaxMind) Fetch(ctx context.Context, dir string) ([]string, error) {
	if m.LicenseKey == "" {
		return nil, ErrLicenseKeyIsRequired
	}

	fs := m.fs()

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", dir, err)
	}

	expectedChecksum, err := m.downloadChecksum(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot download a checksum: %w", err)
	}

	checksumPath := filepath.Join(dir, m.editionID()+"."+suffixChecksum)
	files := m.files(dir)

	if !m.Force && m.isUpToDate(checksumPath, expectedChecksum, files) {
		return nil, ErrNothingToDo
	}

	archivePath := filepath.Join(dir, m.editionID()+"."+suffixArchive)

	defer fs.Remove(archivePath) // nolint: errcheck

	actualChecksum, err := m.downloadArchive(ctx, archivePath)
	if err != nil {
		return nil, fmt.Errorf("cannot download an archive: %w", err)
	}

	if !strings.EqualFold(expectedChecksum, actualChecksum) {
		return nil, fmt.Errorf("expected=%s, actual=%s: %w",
			expectedChecksum, actualChecksum, ErrChecksumMismatch)
	}

	if err := m.extractArchive(archivePath, files); err != nil {
		return nil, fmt.Errorf("cannot extract archive: %w", err)
	}

	if err := afero.WriteFile(fs, checksumPath, []byte(expectedChecksum), 0o644); err != nil {
		return nil, fmt.Errorf("cannot store a checksum: %w", err)
	}

	return files, nil
}

func (m MaxMind) isUpToDate(checksumPath, expectedChecksum string, files []string) bool {
	stored, err := afero.ReadFile(m.fs(), checksumPath)
	if err != nil || !strings.EqualFold(strings.TrimSpace(string(stored)), expectedChecksum) {
		return false
	}

	for _, v := range files {
		if ok, _ := afero.Exists(m.fs(), v); !ok {
			return false
		}
	}

	return true
}

func (m MaxMind) downloadChecksum(ctx context.Context) (string, error) {
	resp, err := m.get(ctx, suffixChecksum)
	if err != nil {
		return "", err
	}

	defer flushResponse(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cannot read body of the response: %w", err)
	}

	checksum := maxmindChecksumRegexp.Find(data)
	if checksum == nil {
		return "", ErrBadChecksumFormat
	}

	return strings.ToLower(string(checksum)), nil
}

func (m MaxMind) downloadArchive(ctx context.Context, archivePath string) (string, error) {
	archiveFile, err := m.fs().Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("cannot create an archive file: %w", err)
	}

	defer archiveFile.Close()

	resp, err := m.get(ctx, suffixArchive)
	if err != nil {
		return "", err
	}

	defer flushResponse(resp.Body)

	checksum, err := hashedCopyResponse(sha256.New, archiveFile, resp.Body)
	if err != nil {
		return "", fmt.Errorf("cannot copy file into fs: %w", err)
	}

	return checksum, nil
}

func (m MaxMind) extractArchive(archivePath string, files []string) error {
	fs := m.fs()

	archiveFile, err := fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("cannot open archive: %w", err)
	}

	defer archiveFile.Close()

	stat, err := archiveFile.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat archive: %w", err)
	}

	zipReader, err := zip.NewReader(archiveFile, stat.Size())
	if err != nil {
		return fmt.Errorf("cannot open zip archive: %w", err)
	}

	wanted := map[string]string{}

	for _, v := range files {
		wanted[filepath.Base(v)] = v
	}

	for _, entry := range zipReader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		target, ok := wanted[path.Base(entry.Name)]
		if !ok {
			continue
		}

		if err := extractFile(fs, entry, target); err != nil {
			return err
		}

		delete(wanted, path.Base(entry.Name))
	}

	if len(wanted) == 0 {
		return nil
	}

	missing := make([]string, 0, len(wanted))

	for name := range wanted {
		missing = append(missing, name)
	}

	sort.Strings(missing)

	return fmt.Errorf("%s: %w", strings.Join(missing, ", "), ErrNoFiles)
}

func (m MaxMind) get(ctx context.Context, suffix string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.buildURL(suffix), nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build a request: %w", err)
	}

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch %s: %w", suffix, err)
	}

	if resp.StatusCode != http.StatusOK {
		flushResponse(resp.Body)

		return nil, fmt.Errorf("cannot fetch %s: %w", suffix, &geolib.StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		})
	}

	return resp, nil
}

// files returns paths of CSV files which have to be extracted.
func (m MaxMind) files(dir string) []string {
	prefix := m.series() + "-" + m.edition() + "-"
	names := []string{
		prefix + "Blocks-IPv4.csv",
		prefix + "Blocks-IPv6.csv",
		prefix + "Locations-en.csv",
	}

	if m.Language != "" && m.Language != "en" && m.edition() == DefaultEdition {
		names = append(names, prefix+"Locations-"+m.Language+".csv")
	}

	for i, v := range names {
		names[i] = filepath.Join(dir, v)
	}

	return names
}

func (m MaxMind) buildURL(suffix string) string {
	if m.LicenseKey == RedistLicenseKey {
		return redistURL + m.editionID() + "." + suffix
	}

	queryValues := url.Values{}

	queryValues.Set("edition_id", m.editionID())
	queryValues.Set("suffix", suffix)
	queryValues.Set("license_key", m.LicenseKey)

	return maxmindURL + "?" + queryValues.Encode()
}

func (m MaxMind) editionID() string {
	return m.series() + "-" + m.edition() + "-CSV"
}

func (m MaxMind) series() string {
	if m.Series == "" {
		return DefaultSeries
	}

	return m.Series
}

func (m MaxMind) edition() string {
	if m.Edition == "" {
		return DefaultEdition
	}

	return m.Edition
}

func (m MaxMind) fs() afero.Fs {
	if m.Fs == nil {
		return afero.NewOsFs()
	}

	return m.Fs
}

func extractFile(fs afero.Fs, entry *zip.File, target string) error {
	reader, err := entry.Open()
	if err != nil {
		return fmt.Errorf("cannot extract %s from archive: %w", entry.Name, err)
	}

	defer reader.Close()

	fp, err := fs.Create(target)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", target, err)
	}

	defer fp.Close()

	if _, err := io.Copy(fp, bufio.NewReader(reader)); err != nil {
		return fmt.Errorf("cannot copy %s: %w", entry.Name, err)
	}

	return nil
}

func flushResponse(resp io.ReadCloser) {
	io.Copy(io.Discard, resp) // nolint: errcheck
	resp.Close()
}

func hashedCopyResponse(hashFunc func() hash.Hash, dst io.Writer, src io.Reader) (string, error) {
	hasher := hashFunc()

	if _, err := io.Copy(io.MultiWriter(hasher, dst), bufio.NewReader(src)); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
