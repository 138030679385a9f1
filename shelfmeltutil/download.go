/*
Copyright © 2019 the ShelfMelt authors.
This file is part of ShelfMelt.

ShelfMelt is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ShelfMelt is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ShelfMelt.  If not, see <http://www.gnu.org/licenses/>.
*/

package shelfmeltutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// maybeDownload checks if the input is an existing local file. If not, and
// the input is an http:// or https:// URL, it downloads the file, retrying
// with exponential backoff on transient failures, and returns the path to
// the downloaded copy. Any other input is returned unchanged.
func maybeDownload(path string, log logrus.FieldLogger) (string, error) {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return path, nil
	}

	dir, err := ioutil.TempDir("", "shelfmelt")
	if err != nil {
		return path, fmt.Errorf("shelfmelt: failed creating temporary download directory: %v", err)
	}
	local := filepath.Join(dir, filepath.Base(path))

	err = backoff.RetryNotify(
		func() error {
			w, err := os.Create(local)
			if err != nil {
				return backoff.Permanent(err)
			}
			defer w.Close()
			resp, err := http.Get(path)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("downloading %s: %s", path, resp.Status)
			}
			_, err = io.Copy(w, resp.Body)
			return err
		},
		backoff.NewExponentialBackOff(),
		func(err error, d time.Duration) {
			log.Warnf("%v: retrying in %v", err, d)
		},
	)
	if err != nil {
		return path, fmt.Errorf("shelfmelt: downloading %s: %v", path, err)
	}
	return local, nil
}
