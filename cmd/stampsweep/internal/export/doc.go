// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export ships sweep results out of the machine that ran them: an
// InfluxDB sink receives one point per recorded sample as the sweep runs, and
// a GCS uploader archives the report and metrics files once it finishes.
//
// Both are optional and both fail soft. A sweep that cannot reach InfluxDB or
// GCS still writes its local report.
package export
