package services

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
	"github.com/custodia-labs/newsdigest/internal/logger"
)

// distanceEpsilon treats representative distances this close as a tie.
const distanceEpsilon = 1e-12

// ClusterEngine partitions embedded headlines with k-means.
//
// Distances are squared Euclidean on the vectors as given; the Embedder
// hands over unit-length vectors, so this orders points the same way
// cosine distance would. The same metric picks representatives.
type ClusterEngine struct {
	seed     int64
	restarts int
	maxIter  int
	logger   *slog.Logger
}

// NewClusterEngine creates a cluster engine from pipeline settings.
func NewClusterEngine(settings domain.PipelineSettings) *ClusterEngine {
	restarts := settings.Restarts
	if restarts < 1 {
		restarts = 1
	}
	maxIter := settings.MaxIterations
	if maxIter < 1 {
		maxIter = 300
	}
	return &ClusterEngine{
		seed:     settings.Seed,
		restarts: restarts,
		maxIter:  maxIter,
		logger:   logger.With("clustering"),
	}
}

// kmeansResult is one restart's outcome.
type kmeansResult struct {
	assign     []int
	centroids  [][]float64
	inertia    float64
	iterations int
}

// Cluster partitions points into min(k, distinct vectors) non-empty
// clusters, sorted by descending size and numbered 0..k-1 in that order.
// The result is deterministic for identical input and settings.
func (e *ClusterEngine) Cluster(points []domain.ClusterPoint, k int) ([]domain.Cluster, *domain.ModelState, error) {
	if k < 1 {
		return nil, nil, domain.NewClusteringError("validate", fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k))
	}
	dim, err := validatePoints(points)
	if err != nil {
		return nil, nil, err
	}

	state := &domain.ModelState{
		RequestedK:  k,
		Seed:        e.seed,
		Restarts:    e.restarts,
		Dimensions:  dim,
		Assignments: make(map[string]int, len(points)),
	}
	if len(points) == 0 {
		return nil, state, nil
	}

	data := make([][]float64, len(points))
	for i, p := range points {
		data[i] = toFloat64(p.Vector)
	}

	kUsed := min(k, countDistinct(points))
	if kUsed < k {
		e.logger.Debug("clamped cluster count", "requested", k, "used", kUsed)
	}
	state.K = kUsed

	var best *kmeansResult
	for r := 0; r < e.restarts; r++ {
		rng := rand.New(rand.NewSource(e.seed + int64(r))) //nolint:gosec // reproducibility, not security
		res := e.kmeans(data, kUsed, rng)
		if best == nil || res.inertia < best.inertia {
			best = res
		}
	}
	state.Iterations = best.iterations
	state.Inertia = best.inertia

	clusters := buildClusters(points, data, best)
	state.Centroids = make([][]float32, len(clusters))
	for _, c := range clusters {
		state.Centroids[c.ID] = c.Centroid
		for _, id := range c.MemberIDs {
			state.Assignments[id] = c.ID
		}
	}

	e.logger.Debug("clustered headlines",
		"points", len(points), "k", kUsed, "iterations", best.iterations, "inertia", best.inertia)
	return clusters, state, nil
}

// validatePoints checks that every vector has the same non-zero dimension
// and that IDs are unique.
func validatePoints(points []domain.ClusterPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	dim := len(points[0].Vector)
	if dim == 0 {
		return 0, domain.NewClusteringError("validate",
			fmt.Errorf("%w: point %s has an empty vector", domain.ErrDimensionMismatch, points[0].ID))
	}
	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		if len(p.Vector) != dim {
			return 0, domain.NewClusteringError("validate",
				fmt.Errorf("%w: point %s has %d dimensions, expected %d",
					domain.ErrDimensionMismatch, p.ID, len(p.Vector), dim))
		}
		if _, dup := seen[p.ID]; dup {
			return 0, domain.NewClusteringError("validate",
				fmt.Errorf("%w: duplicate point id %s", domain.ErrInvalidInput, p.ID))
		}
		seen[p.ID] = struct{}{}
	}
	return dim, nil
}

// countDistinct returns the number of bit-distinct vectors.
func countDistinct(points []domain.ClusterPoint) int {
	seen := make(map[string]struct{}, len(points))
	buf := make([]byte, 0, 4*len(points[0].Vector))
	for _, p := range points {
		buf = buf[:0]
		for _, x := range p.Vector {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
		}
		seen[string(buf)] = struct{}{}
	}
	return len(seen)
}

// kmeans runs Lloyd's algorithm from a k-means++ initialisation.
func (e *ClusterEngine) kmeans(data [][]float64, k int, rng *rand.Rand) *kmeansResult {
	centroids := seedCentroids(data, k, rng)
	assign := make([]int, len(data))
	for i := range assign {
		assign[i] = -1
	}

	iterations := 0
	for iterations < e.maxIter {
		iterations++
		changed := assignPoints(data, centroids, assign)
		if reseedEmpty(data, centroids, assign) {
			changed = true
		}
		recomputeCentroids(data, centroids, assign)
		if !changed {
			break
		}
	}

	var inertia float64
	for i, p := range data {
		inertia += squaredDistance(p, centroids[assign[i]])
	}
	return &kmeansResult{assign: assign, centroids: centroids, inertia: inertia, iterations: iterations}
}

// seedCentroids picks k initial centroids with k-means++: the first at
// random, each next one with probability proportional to its squared
// distance from the nearest centroid chosen so far. Points identical to a
// chosen centroid have zero weight, so k distinct vectors give k distinct
// centroids.
func seedCentroids(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := rng.Intn(len(data))
	centroids = append(centroids, append([]float64(nil), data[first]...))

	nearest := make([]float64, len(data))
	for i, p := range data {
		nearest[i] = squaredDistance(p, centroids[0])
	}

	for len(centroids) < k {
		var total float64
		for _, d := range nearest {
			total += d
		}
		if total == 0 {
			break
		}
		target := rng.Float64() * total
		pick := -1
		var cum float64
		for i, d := range nearest {
			if d == 0 {
				continue
			}
			cum += d
			pick = i
			if cum > target {
				break
			}
		}
		c := append([]float64(nil), data[pick]...)
		centroids = append(centroids, c)
		for i, p := range data {
			if d := squaredDistance(p, c); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return centroids
}

// assignPoints moves each point to its nearest centroid, lowest index on
// ties, and reports whether any assignment changed.
func assignPoints(data, centroids [][]float64, assign []int) bool {
	changed := false
	for i, p := range data {
		bestIdx, bestDist := 0, math.Inf(1)
		for j, c := range centroids {
			if d := squaredDistance(p, c); d < bestDist {
				bestIdx, bestDist = j, d
			}
		}
		if assign[i] != bestIdx {
			assign[i] = bestIdx
			changed = true
		}
	}
	return changed
}

// reseedEmpty gives every empty cluster the point farthest from its own
// centroid, taken from a cluster that can spare it. It reports whether any
// point moved.
func reseedEmpty(data, centroids [][]float64, assign []int) bool {
	sizes := make([]int, len(centroids))
	for _, a := range assign {
		sizes[a]++
	}

	moved := false
	for j := range centroids {
		if sizes[j] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, p := range data {
			if sizes[assign[i]] < 2 {
				continue
			}
			if d := squaredDistance(p, centroids[assign[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			continue
		}
		sizes[assign[far]]--
		assign[far] = j
		sizes[j]++
		copy(centroids[j], data[far])
		moved = true
	}
	return moved
}

// recomputeCentroids sets each non-empty cluster's centroid to its mean.
func recomputeCentroids(data, centroids [][]float64, assign []int) {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for j := range sums {
		sums[j] = make([]float64, dim)
	}
	for i, p := range data {
		a := assign[i]
		counts[a]++
		for d, x := range p {
			sums[a][d] += x
		}
	}
	for j := range centroids {
		if counts[j] == 0 {
			continue
		}
		for d := range centroids[j] {
			centroids[j][d] = sums[j][d] / float64(counts[j])
		}
	}
}

// buildClusters turns a k-means result into domain clusters, picks
// representatives, sorts by size and renumbers.
func buildClusters(points []domain.ClusterPoint, data [][]float64, res *kmeansResult) []domain.Cluster {
	members := make([][]int, len(res.centroids))
	for i, a := range res.assign {
		members[a] = append(members[a], i)
	}

	clusters := make([]domain.Cluster, 0, len(members))
	firstIndex := make(map[int]int, len(members))
	for j, idxs := range members {
		if len(idxs) == 0 {
			continue
		}
		c := domain.Cluster{
			MemberIDs: make([]string, len(idxs)),
			Centroid:  toFloat32(res.centroids[j]),
		}
		rep, repDist := -1, math.Inf(1)
		for m, i := range idxs {
			c.MemberIDs[m] = points[i].ID
			d := squaredDistance(data[i], res.centroids[j])
			if rep < 0 || d < repDist-distanceEpsilon ||
				(math.Abs(d-repDist) <= distanceEpsilon && earlier(points[i], points[rep])) {
				rep, repDist = i, d
			}
		}
		c.RepresentativeID = points[rep].ID
		firstIndex[len(clusters)] = idxs[0]
		clusters = append(clusters, c)
	}

	order := make([]int, len(clusters))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := clusters[order[a]], clusters[order[b]]
		if ca.Size() != cb.Size() {
			return ca.Size() > cb.Size()
		}
		return firstIndex[order[a]] < firstIndex[order[b]]
	})

	sorted := make([]domain.Cluster, len(clusters))
	for id, idx := range order {
		sorted[id] = clusters[idx]
		sorted[id].ID = id
	}
	return sorted
}

// earlier orders points by timestamp, then ID, for representative ties.
func earlier(a, b domain.ClusterPoint) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}
