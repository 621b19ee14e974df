package realtime

import "sync"

// Handle es una conexión push viva vista desde el registro.
type Handle interface {
	// Open indica si la conexión todavía acepta envíos.
	Open() bool
	// Send encola el payload sin bloquear; falla de inmediato si no puede.
	Send(payload []byte) error
}

// Registry mapea cada usuario autenticado a lo sumo a una conexión.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[string]Handle
	byHandle map[Handle]string
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[string]Handle),
		byHandle: make(map[Handle]string),
	}
}

// Register instala o reemplaza la conexión de userID.
// La conexión reemplazada no se cierra, solo deja de ser alcanzable.
func (r *Registry) Register(userID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevUser, ok := r.byHandle[h]; ok && prevUser != userID {
		if r.byUser[prevUser] == h {
			delete(r.byUser, prevUser)
		}
	}
	if old, ok := r.byUser[userID]; ok && old != h {
		delete(r.byHandle, old)
	}
	r.byUser[userID] = h
	r.byHandle[h] = userID
}

func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byUser[userID]
	return h, ok
}

// Unregister borra el mapeo solo si h sigue siendo la conexión vigente de su
// usuario, así un cierre tardío no desaloja a una conexión más nueva.
func (r *Registry) Unregister(h Handle) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byHandle[h]
	if !ok {
		return "", false
	}
	delete(r.byHandle, h)
	if r.byUser[userID] == h {
		delete(r.byUser, userID)
	}
	return userID, true
}

// Len devuelve la cantidad de usuarios con conexión registrada.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
