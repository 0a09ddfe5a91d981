/* Copyright (c) 2018 Salesforce
 * All rights reserved.
 * Licensed under the BSD 3-Clause license.
 * For full license text, see LICENSE.txt file in the repo root  or https://opensource.org/licenses/BSD-3-Clause
 */

// Package xmiddleware contains Chi style (function that takes and returns a
// HTTP handler) middleware used alongside httpmetrics: request IDs and
// structured request logging.
package xmiddleware
