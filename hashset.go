package cmcache

// HashValue is the hash type used by the arbiter cache and the handler registry.
type HashValue uint64

const hashCoef = 3344921057

// HashPair combines two hashes. HashPair(a, b) == HashPair(b, a).
func HashPair(a, b HashValue) HashValue {
	return a*hashCoef ^ b*hashCoef
}

var primes = []uint{
	5,
	13,
	23,
	47,
	97,
	193,
	389,
	769,
	1543,
	3079,
	6151,
	12289,
	24593,
	49157,
	98317,
	196613,
	393241,
	786433,
	1572869,
	3145739,
	6291469,
	12582917,
	25165843,
	50331653,
	100663319,
	201326611,
	402653189,
	805306457,
	1610612741,
}

func nextPrime(n uint) uint {
	for _, p := range primes {
		if p >= n {
			return p
		}
	}
	panic("tried to resize a hash table to a size greater than 1610612741")
}

type hashSetBin[V any] struct {
	elt  V
	hash HashValue
	next *hashSetBin[V]
}

// HashSet is a chained hash table of V values looked up by a hash and a K key.
//
// The equality function decides whether key matches a stored element, so a
// key does not need to be of the stored type.
type HashSet[K, V any] struct {
	entries    uint
	size       uint
	eql        func(key K, elt V) bool
	table      []*hashSetBin[V]
	pooledBins *hashSetBin[V]
}

func NewHashSet[K, V any](eql func(key K, elt V) bool) *HashSet[K, V] {
	size := nextPrime(0)
	return &HashSet[K, V]{
		size:  size,
		eql:   eql,
		table: make([]*hashSetBin[V], size),
	}
}

func (set *HashSet[K, V]) resize() {
	newSize := nextPrime(set.size + 1)
	newTable := make([]*hashSetBin[V], newSize)

	for i := uint(0); i < set.size; i++ {
		bin := set.table[i]
		for bin != nil {
			next := bin.next
			idx := uint(bin.hash) % newSize
			bin.next = newTable[idx]
			newTable[idx] = bin
			bin = next
		}
	}

	set.table = newTable
	set.size = newSize
}

func (set *HashSet[K, V]) recycle(bin *hashSetBin[V]) {
	var zero V
	bin.elt = zero
	bin.next = set.pooledBins
	set.pooledBins = bin
}

func (set *HashSet[K, V]) getUnusedBin() *hashSetBin[V] {
	bin := set.pooledBins
	if bin != nil {
		set.pooledBins = bin.next
		bin.next = nil
		return bin
	}
	return &hashSetBin[V]{}
}

// Count returns the number of stored elements.
func (set *HashSet[K, V]) Count() uint {
	return set.entries
}

// Insert returns the element matching key, creating it with trans when there is none.
func (set *HashSet[K, V]) Insert(hash HashValue, key K, trans func(key K) V) V {
	idx := uint(hash) % set.size

	// Find the bin with the matching element.
	bin := set.table[idx]
	for bin != nil && !set.eql(key, bin.elt) {
		bin = bin.next
	}

	// Create it if necessary.
	if bin == nil {
		bin = set.getUnusedBin()
		bin.hash = hash
		bin.elt = trans(key)

		bin.next = set.table[idx]
		set.table[idx] = bin

		set.entries++
		if set.entries >= set.size {
			set.resize()
		}
	}

	return bin.elt
}

// Replace stores elt under key, overwriting any matching element. It returns
// the previous element and whether there was one.
func (set *HashSet[K, V]) Replace(hash HashValue, key K, elt V) (V, bool) {
	idx := uint(hash) % set.size

	for bin := set.table[idx]; bin != nil; bin = bin.next {
		if set.eql(key, bin.elt) {
			old := bin.elt
			bin.elt = elt
			return old, true
		}
	}

	var zero V
	set.Insert(hash, key, func(K) V { return elt })
	return zero, false
}

// Remove deletes and returns the element matching key.
func (set *HashSet[K, V]) Remove(hash HashValue, key K) (V, bool) {
	idx := uint(hash) % set.size
	prevPtr := &set.table[idx]
	bin := set.table[idx]

	// Find the bin
	for bin != nil && !set.eql(key, bin.elt) {
		prevPtr = &bin.next
		bin = bin.next
	}

	// Remove the bin if it exists
	if bin != nil {
		// Update the previous linked list pointer
		*prevPtr = bin.next
		set.entries--

		elt := bin.elt
		set.recycle(bin)
		return elt, true
	}

	var zero V
	return zero, false
}

// Find returns the element matching key, or the zero value of V.
func (set *HashSet[K, V]) Find(hash HashValue, key K) V {
	idx := uint(hash) % set.size
	bin := set.table[idx]
	for bin != nil && !set.eql(key, bin.elt) {
		bin = bin.next
	}

	if bin != nil {
		return bin.elt
	}
	var zero V
	return zero
}

// Each calls f for every element. f must not insert or remove elements.
func (set *HashSet[K, V]) Each(f func(elt V)) {
	for _, bin := range set.table {
		for bin != nil {
			next := bin.next
			f(bin.elt)
			bin = next
		}
	}
}

// Filter removes every element for which f returns false.
func (set *HashSet[K, V]) Filter(f func(elt V) bool) {
	for i := range set.table {
		prevPtr := &set.table[i]
		bin := set.table[i]
		for bin != nil {
			next := bin.next

			if f(bin.elt) {
				prevPtr = &bin.next
			} else {
				*prevPtr = next

				set.entries--
				set.recycle(bin)
			}

			bin = next
		}
	}
}
