// Package cluster supplies the default Package Clusterer and Stop
// Orderer/distance collaborators (spec §6.1, §12): out-of-scope leaf
// utilities the Run Controller still calls. Grounded on
// original_source/app/services/clustering.py, with the k-means
// geographic clustering swapped for a deterministic grouping that sorts
// packages by latitude, then longitude, and splits them into contiguous
// buckets, since no numerical/clustering
// library appears anywhere in the example pack.
package cluster

import (
	"math"
	"sort"
)

// Package is the minimal package shape the clusterer and orderer need.
type Package struct {
	ID        int64
	Latitude  float64
	Longitude float64
	WeightKg  float64
	Address   string
}

// RouteCluster is one clusterer output group, matching
// clustering.py's ClusterResult.
type RouteCluster struct {
	ClusterID     int
	Packages      []Package
	TotalWeightKg float64
	NumPackages   int
	NumStops      int
	CentroidLat   float64
	CentroidLng   float64
}

// Clusterer groups packages into at most numDrivers routes.
type Clusterer interface {
	Cluster(packages []Package, numDrivers int) []RouteCluster
}

// GeoSortClusterer deterministically buckets packages by sorting them
// on a Hilbert-curve-free proxy (latitude, then longitude) and
// splitting into numRoutes contiguous, roughly equal-sized groups —
// the same "one route per driver, up to num packages" invariant as
// clustering.py's cluster_packages, without requiring a k-means
// implementation.
type GeoSortClusterer struct{}

// Cluster implements Clusterer.
func (GeoSortClusterer) Cluster(packages []Package, numDrivers int) []RouteCluster {
	if len(packages) == 0 {
		return nil
	}
	numRoutes := numDrivers
	if len(packages) < numRoutes {
		numRoutes = len(packages)
	}
	if numRoutes < 1 {
		numRoutes = 1
	}

	sorted := make([]Package, len(packages))
	copy(sorted, packages)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Latitude != sorted[j].Latitude {
			return sorted[i].Latitude < sorted[j].Latitude
		}
		return sorted[i].Longitude < sorted[j].Longitude
	})

	buckets := make([][]Package, numRoutes)
	for i, p := range sorted {
		b := i * numRoutes / len(sorted)
		buckets[b] = append(buckets[b], p)
	}

	clusters := make([]RouteCluster, 0, numRoutes)
	for id, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		var totalWeight, sumLat, sumLng float64
		stops := make(map[string]struct{})
		for _, p := range bucket {
			totalWeight += p.WeightKg
			sumLat += p.Latitude
			sumLng += p.Longitude
			stops[p.Address] = struct{}{}
		}
		n := float64(len(bucket))
		clusters = append(clusters, RouteCluster{
			ClusterID:     id,
			Packages:      bucket,
			TotalWeightKg: totalWeight,
			NumPackages:   len(bucket),
			NumStops:      len(stops),
			CentroidLat:   sumLat / n,
			CentroidLng:   sumLng / n,
		})
	}
	return clusters
}

// Orderer orders a cluster's packages into a stop sequence.
type Orderer interface {
	Order(packages []Package, startLat, startLng float64) []Package
}

// NearestNeighborOrderer implements the greedy nearest-neighbor TSP
// heuristic, matching clustering.py's
// order_stops_by_nearest_neighbor exactly.
type NearestNeighborOrderer struct{}

// Order implements Orderer.
func (NearestNeighborOrderer) Order(packages []Package, startLat, startLng float64) []Package {
	if len(packages) <= 1 {
		return packages
	}
	remaining := make([]Package, len(packages))
	copy(remaining, packages)
	ordered := make([]Package, 0, len(packages))
	curLat, curLng := startLat, startLng

	for len(remaining) > 0 {
		minDist := math.Inf(1)
		nearest := 0
		for i, p := range remaining {
			d := HaversineDistanceKm(curLat, curLng, p.Latitude, p.Longitude)
			if d < minDist {
				minDist = d
				nearest = i
			}
		}
		next := remaining[nearest]
		ordered = append(ordered, next)
		remaining = append(remaining[:nearest], remaining[nearest+1:]...)
		curLat, curLng = next.Latitude, next.Longitude
	}
	return ordered
}

// HaversineDistanceKm computes the great-circle distance in km between
// two lat/lng points, matching clustering.py's haversine_distance.
func HaversineDistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
