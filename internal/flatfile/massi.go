package flatfile

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"github.com/apoyet/cl2pd/internal/models"
)

// ErrMalformedArchive is returned for Massi archives that cannot be read.
var ErrMalformedArchive = errors.New("malformed massi archive")

const massiLumiType = "lumi"

// LumiRow is one luminosity reading of a Massi file.
type LumiRow struct {
	Timestamp               time.Time
	Fill                    int
	StableBeams             bool
	Experiment              string
	Bunch                   int
	Luminosity              float64
	LuminosityError         float64
	SpecificLuminosity      float64
	SpecificLuminosityError float64
}

// ReadMassiArchive reads a gzip-compressed tar of Massi files laid out as
// <fill>/<fill>_<type>_<bunch*10>_<experiment>.txt. Only lumi files are
// read; other types are skipped. Each file has a header line followed by
// space separated columns: UNIX time, stable beam flag, luminosity, its
// error, specific luminosity and its error. Rows are sorted by time.
func ReadMassiArchive(r io.Reader, logger *logrus.Logger) ([]LumiRow, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}
	defer zr.Close()

	var rows []LumiRow
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		fill, kind, bunch, experiment, ok := parseMassiName(hdr.Name)
		if !ok {
			logger.WithField("file", hdr.Name).Debug("Skipping file outside the massi layout")
			continue
		}
		if kind != massiLumiType {
			logger.WithFields(logrus.Fields{"file": hdr.Name, "type": kind}).Info("Only lumi files are supported")
			continue
		}

		fileRows, err := parseLumiFile(tr, fill, bunch, experiment)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArchive, hdr.Name, err)
		}
		rows = append(rows, fileRows...)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
	return rows, nil
}

func parseMassiName(name string) (fill int, kind string, bunch int, experiment string, ok bool) {
	dir, file := path.Split(strings.TrimPrefix(name, "./"))
	parts := strings.Split(strings.TrimSuffix(file, path.Ext(file)), "_")
	if len(parts) != 4 {
		return 0, "", 0, "", false
	}

	fillDir := strings.Trim(dir, "/")
	if i := strings.LastIndex(fillDir, "/"); i >= 0 {
		fillDir = fillDir[i+1:]
	}
	if fillDir == "" {
		fillDir = parts[0]
	}
	fill, err := strconv.Atoi(fillDir)
	if err != nil {
		return 0, "", 0, "", false
	}
	b, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, "", 0, "", false
	}
	return fill, parts[1], b / 10, parts[3], true
}

func parseLumiFile(r io.Reader, fill, bunch int, experiment string) ([]LumiRow, error) {
	var rows []LumiRow
	sc := bufio.NewScanner(r)
	header := true
	for lineNo := 1; sc.Scan(); lineNo++ {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 6 {
			return nil, fmt.Errorf("line %d: expected 6 columns, got %d", lineNo, len(fields))
		}

		var nums [6]float64
		for i := range nums {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", lineNo, err)
			}
			nums[i] = f
		}
		rows = append(rows, LumiRow{
			Timestamp:               models.TimeFromEpoch(nums[0]),
			Fill:                    fill,
			StableBeams:             nums[1] != 0,
			Experiment:              experiment,
			Bunch:                   bunch,
			Luminosity:              nums[2],
			LuminosityError:         nums[3],
			SpecificLuminosity:      nums[4],
			SpecificLuminosityError: nums[5],
		})
	}
	return rows, sc.Err()
}
