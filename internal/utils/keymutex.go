package utils

import "sync"

// KeyedMutex — мьютекс на ключ (телефон, id обращения). Сериализует
// мутации по одному ключу, не блокируя остальные. Записи не удаляются:
// ключей конечное число за время жизни процесса, накладные расходы малы.
type KeyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

// Lock захватывает мьютекс ключа и возвращает функцию освобождения.
func (k *KeyedMutex) Lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
