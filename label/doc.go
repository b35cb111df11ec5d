// SPDX-License-Identifier: EPL-2.0

// Package label names the channels of IAMF audio elements and the
// loudspeaker layouts of scalable channel layers.
//
// A scalable audio element transmits only the channels each layer adds; the
// rest are reconstructed by the demix package and stored under the matching
// Demixed label. LayerSubstreams lists which labels each layer transmits.
package label
