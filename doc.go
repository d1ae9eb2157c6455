// Package sds holds what the simulated deformable structure packages share:
// error kinds, the package logger and sphere mass/radius helpers.
//
// A body is a tetrahedral mesh (package mesh) whose vertices are cells
// (package organism). Cells divide through the topology operators of package
// transform while package collision keeps the surface from interpenetrating.
package sds
