package train

import "math/rand"

// StratifiedKFold splits sample indices into k folds, keeping the class balance
// of each fold close to the class balance of the whole set. The shuffle is
// seeded so that evaluation runs are reproducible.
// The returned slices are the test indices of each fold.
func StratifiedKFold(labels []uint8, k int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))

	byClass := map[uint8][]int{}
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	folds := make([][]int, k)
	for _, class := range []uint8{0, 1} {
		indices := byClass[class]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		for i, idx := range indices {
			folds[i%k] = append(folds[i%k], idx)
		}
	}
	return folds
}

// trainIndices returns all indices not present in testFold.
func trainIndices(n int, testFold []int) []int {
	inTest := make([]bool, n)
	for _, i := range testFold {
		inTest[i] = true
	}
	train := make([]int, 0, n-len(testFold))
	for i := 0; i < n; i++ {
		if !inTest[i] {
			train = append(train, i)
		}
	}
	return train
}
